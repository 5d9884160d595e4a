package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samber/oops"
)

// ID identifies a listing. The API sends it as a string, older documents
// may carry it as a number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	s, err := unmarshalScalar(b)
	if err != nil {
		return oops.With("value", string(b)).Wrapf(err, "invalid listing id")
	}
	*id = ID(s)
	return nil
}

func (id ID) String() string { return string(id) }

// Amount is a price preview as sent by the API, either a number or a string
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	s, err := unmarshalScalar(b)
	if err != nil {
		return oops.With("value", string(b)).Wrapf(err, "invalid price preview")
	}
	*a = Amount(s)
	return nil
}

// Listing represents a classified ad returned by the search query
type Listing struct {
	ID           ID     `json:"id"`
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	CreatedAt    string `json:"createdAt"`
	Description  string `json:"description"`
	PricePreview Amount `json:"pricePreview"`
	PriceUnit    string `json:"priceUnit"`
	PriceType    string `json:"priceType"`
	Cities       []City `json:"cities"`
	DefaultMedia *Media `json:"defaultMedia"`
	Store        *Store `json:"store"`
}

type City struct {
	Name   string  `json:"name"`
	Region *Region `json:"region"`
}

type Region struct {
	Name string `json:"name"`
}

type Media struct {
	MediaURL string `json:"mediaUrl"`
}

type Store struct {
	Name string `json:"name"`
}

// Stub builds the minimal listing used when nothing is known about id
func Stub(id ID) Listing {
	return Listing{ID: id, Title: "Listing d" + string(id)}
}

// MediaURL returns the representative picture or an empty string
func (l Listing) MediaURL() string {
	if l.DefaultMedia == nil {
		return ""
	}
	return l.DefaultMedia.MediaURL
}

// HasMedia reports whether the listing can be delivered
func (l Listing) HasMedia() bool {
	return l.MediaURL() != ""
}

// URL returns the public page of the listing on siteURL
func (l Listing) URL(siteURL string) string {
	slug := strings.TrimPrefix(l.Slug, "/")
	if slug != "" {
		slug += "-"
	}
	return fmt.Sprintf("%s/%sd%s", strings.TrimSuffix(siteURL, "/"), slug, l.ID)
}

// City returns the first city name and its region name
func (l Listing) City() (city, region string) {
	if len(l.Cities) == 0 {
		return "", ""
	}
	first := l.Cities[0]
	if first.Region != nil {
		region = first.Region.Name
	}
	return first.Name, region
}

// StoreName returns the store name or an empty string for private sellers
func (l Listing) StoreName() string {
	if l.Store == nil {
		return ""
	}
	return l.Store.Name
}

// CreatedTime parses CreatedAt
func (l Listing) CreatedTime() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, l.CreatedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// PriceLine formats the price the way it is shown to users
func PriceLine(preview, unit, kind string) string {
	if preview == "" {
		preview = "N/A"
	}
	return fmt.Sprintf("%s %s (%s)", preview, unit, kind)
}

// LocationLine formats city and region the way they are shown to users
func LocationLine(city, region string) string {
	if city == "" {
		city = "Unknown"
	}
	if region == "" {
		return city
	}
	return city + ", " + region
}

func unmarshalScalar(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		err := json.Unmarshal(b, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}
