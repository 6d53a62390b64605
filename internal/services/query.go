package services

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/etuitionbd/etuition-be/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPageLimit = 9
	MaxPageLimit     = 50
	HomeTuitions     = 6
	HomeTutors       = 4
)

// ListQuery selects one page of the public tuition listing.
type ListQuery struct {
	Page   int64
	Limit  int64
	Search string
}

// ParseListQuery reads page, limit and search from URL query values.
// Missing or non-positive numbers fall back to the defaults.
func ParseListQuery(v url.Values) ListQuery {
	q := ListQuery{
		Page:   positiveInt(v.Get("page"), 1),
		Limit:  positiveInt(v.Get("limit"), DefaultPageLimit),
		Search: strings.TrimSpace(v.Get("search")),
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if maxPage := math.MaxInt64 / q.Limit; q.Page > maxPage {
		q.Page = maxPage
	}
	return q
}

func positiveInt(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// Skip is the number of documents before the requested page. It saturates
// instead of overflowing.
func (q ListQuery) Skip() int64 {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt64/q.Limit {
		return math.MaxInt64
	}
	return (q.Page - 1) * q.Limit
}

// TotalPages is ceil(total/limit).
func TotalPages(total, limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// approvedSearchFilter matches approved listings whose subject or location
// contains search, case-insensitively. The term is matched literally.
func approvedSearchFilter(search string) bson.M {
	filter := bson.M{"status": models.TuitionApproved}
	if search == "" {
		return filter
	}
	re := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	filter["$or"] = bson.A{
		bson.M{"subject": re},
		bson.M{"location": re},
	}
	return filter
}

// transitionFilter matches the document only while its status is still
// pending or already equals target, which makes a repeated decision a no-op
// and rejects a change of a decided status.
func transitionFilter(id primitive.ObjectID, pending, target string) bson.M {
	return bson.M{
		"_id":    id,
		"status": bson.M{"$in": bson.A{pending, target}},
	}
}

func newestFirst(field string) *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: field, Value: -1}})
}
