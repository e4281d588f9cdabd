package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"potholytics-service/internal/config"
	"potholytics-service/internal/domain/pothole"
)

// GoogleClient resolves free-text addresses through the Google Geocoding API.
type GoogleClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewGoogleClient(cfg config.GeocodingConfig, log zerolog.Logger) *GoogleClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type geocodeResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
	Results      []geocodeResult `json:"results"`
}

type geocodeResult struct {
	AddressComponents []addressComponent `json:"address_components"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// Locate returns the city and state of address. Anything but an OK status with
// at least one result is ErrGeocodingFailed.
func (c *GoogleClient) Locate(ctx context.Context, address string) (pothole.Locality, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return pothole.Locality{}, fmt.Errorf("%w: empty address", pothole.ErrGeocodingFailed)
	}

	query := url.Values{}
	query.Set("address", address)
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return pothole.Locality{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pothole.Locality{}, fmt.Errorf("%w: %v", pothole.ErrGeocodingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pothole.Locality{}, fmt.Errorf("%w: status %d", pothole.ErrGeocodingFailed, resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return pothole.Locality{}, fmt.Errorf("%w: decode: %v", pothole.ErrGeocodingFailed, err)
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		c.log.Debug().
			Str("address", address).
			Str("status", body.Status).
			Str("error_message", body.ErrorMessage).
			Msg("geocoding returned no locality")
		return pothole.Locality{}, fmt.Errorf("%w: status %s", pothole.ErrGeocodingFailed, body.Status)
	}

	return localityFrom(body.Results[0].AddressComponents), nil
}

func localityFrom(components []addressComponent) pothole.Locality {
	var loc pothole.Locality
	fallbacks := map[string]string{}

	for _, comp := range components {
		for _, typ := range comp.Types {
			switch typ {
			case "locality":
				loc.City = comp.LongName
			case "administrative_area_level_1":
				loc.State = comp.LongName
			case "postal_town", "administrative_area_level_2", "sublocality":
				if _, ok := fallbacks[typ]; !ok {
					fallbacks[typ] = comp.LongName
				}
			}
		}
	}

	if loc.City == "" {
		for _, typ := range []string{"postal_town", "administrative_area_level_2", "sublocality"} {
			if name := fallbacks[typ]; name != "" {
				loc.City = name
				break
			}
		}
	}
	return loc
}
