package source

import "github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/config"

const searchQuery = `query SearchQuery($q: String, $filter: SearchFilterInput, $mediaSize: MediaSize) {
      search(q: $q, filter: $filter) {
        announcements {
          data {
            id
            title
            slug
            createdAt: refreshedAt
            description
            pricePreview
            priceUnit
            priceType
            cities {
              name
              region {
                name
              }
            }
            defaultMedia(size: $mediaSize) {
              mediaUrl
            }
            store {
              name
            }
          }
        }
      }
    }`

type searchRequest struct {
	OperationName string          `json:"operationName"`
	Variables     searchVariables `json:"variables"`
	Query         string          `json:"query"`
}

type searchVariables struct {
	MediaSize string       `json:"mediaSize"`
	Q         *string      `json:"q"`
	Filter    searchFilter `json:"filter"`
}

type searchFilter struct {
	CategorySlug string       `json:"categorySlug"`
	Origin       *string      `json:"origin"`
	Connected    bool         `json:"connected"`
	Delivery     *bool        `json:"delivery"`
	RegionIDs    []string     `json:"regionIds"`
	CityIDs      []string     `json:"cityIds"`
	PriceRange   [2]int       `json:"priceRange"`
	Exchange     *bool        `json:"exchange"`
	HasPictures  bool         `json:"hasPictures"`
	HasPrice     bool         `json:"hasPrice"`
	PriceUnit    string       `json:"priceUnit"`
	Fields       []string     `json:"fields"`
	Page         int          `json:"page"`
	OrderByField orderByField `json:"orderByField"`
	Count        int          `json:"count"`
}

type orderByField struct {
	Field string `json:"field"`
}

func newSearchRequest(s config.Search) searchRequest {
	return searchRequest{
		OperationName: "SearchQuery",
		Variables: searchVariables{
			MediaSize: s.MediaSize,
			Filter: searchFilter{
				CategorySlug: s.CategorySlug,
				RegionIDs:    nonNil(s.RegionIDs),
				CityIDs:      nonNil(s.CityIDs),
				PriceRange:   [2]int{s.PriceMin, s.PriceMax},
				HasPictures:  true,
				HasPrice:     true,
				PriceUnit:    s.PriceUnit,
				Fields:       []string{},
				Page:         1,
				OrderByField: orderByField{Field: "REFRESHED_AT"},
				Count:        s.Count,
			},
		},
		Query: searchQuery,
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// browserHeaders are sent with every query, the API rejects bare clients
var browserHeaders = [][2]string{
	{"Accept", "*/*"},
	{"Accept-Language", "fr"},
	{"Authorization", ""},
	{"Content-Type", "application/json"},
	{"Locale", "fr"},
	{"Origin", "https://www.ouedkniss.com"},
	{"Priority", "u=1, i"},
	{"Referer", "https://www.ouedkniss.com/"},
	{"Sec-Ch-Ua", `"Opera";v="120", "Not-A.Brand";v="8", "Chromium";v="135"`},
	{"Sec-Ch-Ua-Mobile", "?0"},
	{"Sec-Ch-Ua-Platform", `"macOS"`},
	{"Sec-Fetch-Dest", "empty"},
	{"Sec-Fetch-Mode", "cors"},
	{"Sec-Fetch-Site", "same-site"},
	{"User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36 OPR/120.0.0.0"},
	{"X-App-Version", `"3.3.42"`},
	{"X-Referer", "https://www.ouedkniss.com/immobilier-location-appartement/1"},
}
