// Package geo resolves addresses to coordinates and keeps the locations the
// client attaches to outbound messages.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultKakaoURL is the Kakao Local address search endpoint
const DefaultKakaoURL = "https://dapi.kakao.com/v2/local/search/address.json"

// MinQueryLength is the shortest query worth suggesting for
const MinQueryLength = 2

var (
	// ErrEmptyQuery is returned for a blank address query
	ErrEmptyQuery = errors.New("address query is empty")

	// ErrNoAPIKey is returned when no Kakao REST key is configured
	ErrNoAPIKey = errors.New("kakao REST API key is not configured")
)

// Place is one address search result
type Place struct {
	Address string
	Lat     float64
	Lng     float64
}

// Kakao searches addresses with the Kakao Local API
type Kakao struct {
	key      string
	endpoint string
	http     *http.Client
}

// NewKakao creates a client authenticated with a Kakao REST API key
func NewKakao(restKey string) *Kakao {
	return &Kakao{
		key:      restKey,
		endpoint: DefaultKakaoURL,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoint points the client somewhere else (tests)
func (k *Kakao) WithEndpoint(endpoint string) *Kakao {
	k.endpoint = endpoint
	return k
}

type kakaoResponse struct {
	Documents []struct {
		AddressName string `json:"address_name"`
		X           string `json:"x"` // Longitude
		Y           string `json:"y"` // Latitude
	} `json:"documents"`
}

// Search returns the places matching query in relevance order
func (k *Kakao) Search(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if k.key == "" {
		return nil, ErrNoAPIKey
	}

	u, err := url.Parse(k.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid address search url: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build address search request: %w", err)
	}
	req.Header.Set("Authorization", "KakaoAK "+k.key)

	resp, err := k.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("address search failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("address search failed: status %d", resp.StatusCode)
	}

	var body kakaoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode address search response: %w", err)
	}

	places := make([]Place, 0, len(body.Documents))
	for _, doc := range body.Documents {
		lng, errX := strconv.ParseFloat(doc.X, 64)
		lat, errY := strconv.ParseFloat(doc.Y, 64)
		if errX != nil || errY != nil {
			continue
		}
		places = append(places, Place{Address: doc.AddressName, Lat: lat, Lng: lng})
	}
	return places, nil
}
