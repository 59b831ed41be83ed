package search

import (
	"net/url"
	"strings"
)

// QueryParam is the location parameter holding the query text.
const QueryParam = "q"

// Location is the shareable, URL-encoded part of the search state.
type Location struct {
	values url.Values
}

// ParseLocation parses a query string with or without a leading "?", or a full URL.
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[i+1:]
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return Location{}, err
	}
	return Location{values: values}, nil
}

// Query returns the q parameter.
func (l Location) Query() string {
	return l.values.Get(QueryParam)
}

// WithQuery returns a copy of l with the q parameter set, or removed when q is blank.
func (l Location) WithQuery(q string) Location {
	values := url.Values{}
	for k, v := range l.values {
		values[k] = append([]string(nil), v...)
	}
	if strings.TrimSpace(q) == "" {
		values.Del(QueryParam)
	} else {
		values.Set(QueryParam, q)
	}
	return Location{values: values}
}

// Encode returns the location as a query string without the leading "?".
func (l Location) Encode() string {
	return l.values.Encode()
}

func (l Location) String() string {
	if enc := l.Encode(); enc != "" {
		return "/search?" + enc
	}
	return "/search"
}
