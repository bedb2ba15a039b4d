// Acoustic service client (ReccoBeats-style JSON API).
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/remo-imparato/matchmonkey/internal/models"
	"github.com/remo-imparato/matchmonkey/internal/shared"
)

// AcousticServiceID is the Gateway registration key for the acoustic service.
const AcousticServiceID = "acoustic"

// AlbumRef identifies an album returned by the acoustic service's search.
type AlbumRef struct {
	ID     string
	Name   string
	Artist string
}

// TrackRef identifies a track within the acoustic service's catalog.
type TrackRef struct {
	ID     string
	Title  string
	Artist string
}

type acousticArtist struct {
	Name string `json:"name"`
}

type acousticAlbum struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Artists []acousticArtist `json:"artists"`
}

type acousticTrack struct {
	ID         string           `json:"id"`
	TrackTitle string           `json:"trackTitle"`
	Artists    []acousticArtist `json:"artists"`
}

type albumSearchResponse struct {
	Content []acousticAlbum `json:"content"`
}

type trackListResponse struct {
	Content []acousticTrack `json:"content"`
}

// AcousticClient issues audio-feature and recommendation queries through the
// Gateway. Failed or empty intermediate steps (album not found, no features)
// yield empty results rather than errors, so strategies can fall through to
// their remaining seeds.
type AcousticClient struct {
	gateway *Gateway
	logger  *log.Logger
}

// NewAcousticClient creates an acoustic client.
func NewAcousticClient(gateway *Gateway, logger *log.Logger) *AcousticClient {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AcousticClient{gateway: gateway, logger: logger}
}

// notFound reports whether err is a 404 from the service.
func notFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// SearchAlbum looks up albums matching the query. An unknown album is not an
// error; it returns an empty slice.
func (c *AcousticClient) SearchAlbum(ctx context.Context, query string) ([]AlbumRef, error) {
	params := url.Values{}
	params.Set("searchText", query)

	body, err := c.gateway.Request(ctx, AcousticServiceID, "/v1/album/search", params)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var resp albumSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode album search response: %w", err)
	}

	albums := make([]AlbumRef, 0, len(resp.Content))
	for _, a := range resp.Content {
		ref := AlbumRef{ID: a.ID, Name: a.Name}
		if len(a.Artists) > 0 {
			ref.Artist = a.Artists[0].Name
		}
		albums = append(albums, ref)
	}
	return albums, nil
}

// AlbumTracks lists the tracks on an album.
func (c *AcousticClient) AlbumTracks(ctx context.Context, albumID string) ([]TrackRef, error) {
	body, err := c.gateway.Request(ctx, AcousticServiceID, "/v1/album/"+url.PathEscape(albumID)+"/track", nil)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var resp trackListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode album tracks response: %w", err)
	}

	tracks := make([]TrackRef, 0, len(resp.Content))
	for _, t := range resp.Content {
		ref := TrackRef{ID: t.ID, Title: t.TrackTitle}
		if len(t.Artists) > 0 {
			ref.Artist = t.Artists[0].Name
		}
		tracks = append(tracks, ref)
	}
	return tracks, nil
}

// AudioFeatures fetches the audio-feature vector for a track. Returns nil
// without error when the service has no features for the track.
func (c *AcousticClient) AudioFeatures(ctx context.Context, trackID string) (*models.AudioFeatures, error) {
	body, err := c.gateway.Request(ctx, AcousticServiceID, "/v1/track/"+url.PathEscape(trackID)+"/audio-features", nil)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var features models.AudioFeatures
	if err := json.Unmarshal(body, &features); err != nil {
		return nil, fmt.Errorf("failed to decode audio features response: %w", err)
	}
	return &features, nil
}

// Recommendations returns track candidates for the given seed tracks and/or
// target feature profile. Relevance decays with rank since the service
// returns an ordered list without scores.
func (c *AcousticClient) Recommendations(ctx context.Context, seedIDs []string, profile *models.AudioFeatures, limit int) ([]models.Candidate, error) {
	params := url.Values{}
	if len(seedIDs) > 0 {
		params.Set("seeds", strings.Join(seedIDs, ","))
	}
	if limit > 0 {
		params.Set("size", strconv.Itoa(limit))
	}
	if profile != nil {
		setFeature := func(key string, v float64) {
			if v > 0 {
				params.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		setFeature("acousticness", profile.Acousticness)
		setFeature("danceability", profile.Danceability)
		setFeature("energy", profile.Energy)
		setFeature("instrumentalness", profile.Instrumentalness)
		setFeature("liveness", profile.Liveness)
		setFeature("speechiness", profile.Speechiness)
		setFeature("valence", profile.Valence)
		setFeature("tempo", profile.Tempo)
	}

	body, err := c.gateway.Request(ctx, AcousticServiceID, "/v1/track/recommendation", params)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var resp trackListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode recommendation response: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(resp.Content))
	for i, t := range resp.Content {
		if t.TrackTitle == "" {
			continue
		}
		candidate := models.Candidate{
			Kind:      models.KindTrack,
			Name:      t.TrackTitle,
			Relevance: RankRelevance(i, len(resp.Content)),
			SourceID:  t.ID,
		}
		if len(t.Artists) > 0 {
			candidate.ArtistName = t.Artists[0].Name
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}
