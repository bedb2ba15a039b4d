// Similarity service client (Last.fm-style JSON API).
//
// Response shapes based on https://www.last.fm/api
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/shared"
)

// SimilarityServiceID is the Gateway registration key for the similarity service.
const SimilarityServiceID = "similarity"

// flexFloat decodes JSON numbers that the similarity service sometimes quotes
// as strings (the "match" field in particular).
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid float value %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

type similarArtist struct {
	Name  string    `json:"name"`
	MBID  string    `json:"mbid"`
	Match flexFloat `json:"match"`
}

type similarArtistsResponse struct {
	SimilarArtists struct {
		Artist []similarArtist `json:"artist"`
	} `json:"similarartists"`
}

type similarTrack struct {
	Name  string    `json:"name"`
	MBID  string    `json:"mbid"`
	Match flexFloat `json:"match"`
	Artist struct {
		Name string `json:"name"`
	} `json:"artist"`
}

type similarTracksResponse struct {
	SimilarTracks struct {
		Track []similarTrack `json:"track"`
	} `json:"similartracks"`
}

type topArtistsResponse struct {
	TopArtists struct {
		Artist []similarArtist `json:"artist"`
	} `json:"topartists"`
}

// SimilarityClient issues similarity queries (similar artists, similar tracks,
// top artists for a tag) through the Gateway.
type SimilarityClient struct {
	gateway *Gateway
	apiKey  string
	logger  *log.Logger
}

// NewSimilarityClient creates a similarity client. The API key is attached to
// every request as a query parameter.
func NewSimilarityClient(gateway *Gateway, apiKey string, logger *log.Logger) *SimilarityClient {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SimilarityClient{gateway: gateway, apiKey: apiKey, logger: logger}
}

func (c *SimilarityClient) params(method string) url.Values {
	params := url.Values{}
	params.Set("method", method)
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	return params
}

// SimilarArtists returns artist candidates similar to the named artist,
// ordered by the service's match score.
func (c *SimilarityClient) SimilarArtists(ctx context.Context, name string, limit int) ([]models.Candidate, error) {
	params := c.params("artist.getsimilar")
	params.Set("artist", name)
	params.Set("autocorrect", "1")
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.gateway.Request(ctx, SimilarityServiceID, "", params)
	if err != nil {
		return nil, err
	}

	var resp similarArtistsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode similar artists response: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(resp.SimilarArtists.Artist))
	for _, a := range resp.SimilarArtists.Artist {
		if a.Name == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Kind:      models.KindArtist,
			Name:      a.Name,
			Relevance: float64(a.Match),
			SourceID:  a.MBID,
		})
	}
	return candidates, nil
}

// SimilarTracks returns track candidates similar to the given track.
func (c *SimilarityClient) SimilarTracks(ctx context.Context, artist, title string, limit int) ([]models.Candidate, error) {
	params := c.params("track.getsimilar")
	params.Set("artist", artist)
	params.Set("track", title)
	params.Set("autocorrect", "1")
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.gateway.Request(ctx, SimilarityServiceID, "", params)
	if err != nil {
		return nil, err
	}

	var resp similarTracksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode similar tracks response: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(resp.SimilarTracks.Track))
	for _, t := range resp.SimilarTracks.Track {
		if t.Name == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Kind:       models.KindTrack,
			Name:       t.Name,
			ArtistName: t.Artist.Name,
			Relevance:  float64(t.Match),
			SourceID:   t.MBID,
		})
	}
	return candidates, nil
}

// TopArtistsForTag returns the most popular artists for a genre tag. The
// service reports no match score here, so relevance decays with rank.
func (c *SimilarityClient) TopArtistsForTag(ctx context.Context, tag string, limit int) ([]models.Candidate, error) {
	params := c.params("tag.gettopartists")
	params.Set("tag", tag)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.gateway.Request(ctx, SimilarityServiceID, "", params)
	if err != nil {
		return nil, err
	}

	var resp topArtistsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode top artists response: %w", err)
	}

	artists := resp.TopArtists.Artist
	candidates := make([]models.Candidate, 0, len(artists))
	for i, a := range artists {
		if a.Name == "" {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Kind:      models.KindArtist,
			Name:      a.Name,
			Relevance: RankRelevance(i, len(artists)),
			SourceID:  a.MBID,
		})
	}
	return candidates, nil
}

// RankRelevance converts a zero-based rank within a list of n results into a
// relevance score in (0, 1], preserving order.
func RankRelevance(rank, n int) float64 {
	if n <= 0 {
		return 0
	}
	return 1.0 - float64(rank)/float64(2*n)
}
