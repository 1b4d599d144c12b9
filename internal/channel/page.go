package channel

import "strings"

// Pagination bounds shared by every list operation.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// NormalizePageRequest validates page and pageSize. Page is 1-indexed; a
// missing pageSize falls back to DefaultPageSize, and a pageSize over
// MaxPageSize is rejected with a ValidationError rather than silently
// truncated.
func NormalizePageRequest(page, pageSize int) (int, int, error) {
	if page < 1 {
		return 0, 0, NewValidationError("page", "must be >= 1, got %d", page)
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize < 1 {
		return 0, 0, NewValidationError("page_size", "must be >= 1, got %d", pageSize)
	}
	if pageSize > MaxPageSize {
		return 0, 0, NewValidationError("page_size", "must be <= %d, got %d", MaxPageSize, pageSize)
	}
	return page, pageSize, nil
}

// Paginate slices the filtered set into the requested page. TotalCount is
// computed before slicing; a start offset at or past the end yields an empty
// item list, not an error.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	total := len(items)
	start := (page - 1) * pageSize
	if start >= total {
		return Page[T]{Items: []T{}, TotalCount: total, Page: page, PageSize: pageSize}
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return Page[T]{Items: out, TotalCount: total, Page: page, PageSize: pageSize}
}

// MatchName reports whether the canonical name matches the search query
// (case-insensitive substring). An empty query matches everything.
func MatchName(name, query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

// FilterContacts applies the query's search and status filters to the
// canonical contact set. Filters combine with logical AND; absent filters
// impose no constraint.
func FilterContacts(items []Contact, query ContactQuery) []Contact {
	out := make([]Contact, 0, len(items))
	for _, item := range items {
		if !MatchName(item.Name, query.Search) {
			continue
		}
		if query.Status != "" && item.Status != query.Status {
			continue
		}
		out = append(out, item)
	}
	return out
}

// FilterChats applies the query's chat-type and archived filters to the
// canonical chat set. The archived filter only constrains platforms that
// record an archive flag; supportsArchive=false ignores it.
func FilterChats(items []Chat, query ChatQuery, supportsArchive bool) []Chat {
	out := make([]Chat, 0, len(items))
	for _, item := range items {
		if query.ChatType != "" && item.ChatType != query.ChatType {
			continue
		}
		if query.Archived != nil && supportsArchive {
			if ReadBool(item.ChannelData, "archived") != *query.Archived {
				continue
			}
		}
		out = append(out, item)
	}
	return out
}
