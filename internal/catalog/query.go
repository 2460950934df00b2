package catalog

import (
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type SortBy string

const (
	SortByStatus        SortBy = "status"
	SortByTitle         SortBy = "title"
	SortByLastUpdated   SortBy = "last_updated"
	SortByViews         SortBy = "views"
	SortByAverageRating SortBy = "average_rating"
	SortByFavorites     SortBy = "favorites"
)

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// NovelQuery holds the catalog listing filters accepted by the API.
type NovelQuery struct {
	Skip     int
	Limit    int
	Keyword  string
	Statuses []string
	Author   string
	Tags     []string
	Artist   string
	Type     string
	SortBy   SortBy
	SortDir  SortDir
}

// Normalize clamps paging the same way the server does and fills sort defaults.
func (q NovelQuery) Normalize() NovelQuery {
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Limit == 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit < 1 {
		q.Limit = 1
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.SortBy == "" {
		q.SortBy = SortByLastUpdated
	}
	if q.SortDir == "" {
		q.SortDir = SortDesc
	}
	return q
}

// Values encodes the query string. Repeated filters are sent once per value.
func (q NovelQuery) Values() url.Values {
	q = q.Normalize()
	v := url.Values{}
	v.Set("skip", strconv.Itoa(q.Skip))
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("sort_by", string(q.SortBy))
	v.Set("sort_dir", string(q.SortDir))
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	if q.Author != "" {
		v.Set("author", q.Author)
	}
	if q.Artist != "" {
		v.Set("artist", q.Artist)
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	for _, s := range q.Statuses {
		v.Add("statuses", s)
	}
	for _, t := range q.Tags {
		v.Add("tags", t)
	}
	return v
}
