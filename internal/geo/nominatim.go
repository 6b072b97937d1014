package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"leadrouter_backend/platform/logger"
)

// NominatimGeocoder resolves postcodes against a Nominatim instance.
// Used as the precise tier when NOMINATIM_URL is configured.
type NominatimGeocoder struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewNominatimGeocoder creates a geocoder against the given Nominatim base URL.
func NewNominatimGeocoder(baseURL string, log *logger.Logger) *NominatimGeocoder {
	return &NominatimGeocoder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		log:     log,
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode looks up a normalized Dutch postcode. A miss is not an error.
func (g *NominatimGeocoder) Geocode(ctx context.Context, postcode string) (Coordinate, bool, error) {
	params := url.Values{}
	params.Add("postalcode", postcode)
	params.Add("format", "json")
	params.Add("limit", "1")
	params.Add("countrycodes", "nl")

	reqURL := fmt.Sprintf("%s/search?%s", g.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Coordinate{}, false, err
	}

	req.Header.Set("User-Agent", "Leadrouter/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Error("nominatim request failed", "error", err)
		return Coordinate{}, false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		g.log.Error("nominatim upstream error", "status", resp.StatusCode)
		return Coordinate{}, false, fmt.Errorf("upstream api error: %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		g.log.Error("failed to decode nominatim payload", "error", err)
		return Coordinate{}, false, err
	}

	if len(results) == 0 {
		return Coordinate{}, false, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinate{}, false, fmt.Errorf("invalid latitude %q", results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinate{}, false, fmt.Errorf("invalid longitude %q", results[0].Lon)
	}

	return Coordinate{Lat: lat, Lon: lon}, true, nil
}
