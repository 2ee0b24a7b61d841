package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/qrave1/RoomWatch/internal/application/config"
	"github.com/qrave1/RoomWatch/internal/application/metric"
	"github.com/qrave1/RoomWatch/internal/domain"
)

// PlaylistEntryCap ограничивает число треков, забираемых из одного
// плейлиста или микса за раз.
const PlaylistEntryCap = 20

// Client - резолвер медиа поверх YouTube Data API v3. Принимает ссылку
// на видео, ссылку на плейлист или текстовый запрос. Любая ошибка здесь
// штатная: протухшая ссылка или недоступный апстрим не валят процесс.
type Client struct {
	apiKey  string
	baseURL string

	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(cfg config.YouTubeConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// Resolve превращает пользовательский ввод в список треков
func (c *Client) Resolve(ctx context.Context, ref string) ([]domain.ResolvedItem, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.ErrNoResults
	}

	videoID, playlistID := parseReference(ref)

	switch {
	case playlistID != "":
		return c.playlistItems(ctx, playlistID)
	case videoID != "":
		return c.videoByID(ctx, videoID)
	default:
		return c.Search(ctx, ref, 5)
	}
}

type ytSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

type ytSnippet struct {
	Title      string `json:"title"`
	Thumbnails struct {
		Default struct {
			URL string `json:"url"`
		} `json:"default"`
		Medium struct {
			URL string `json:"url"`
		} `json:"medium"`
		High struct {
			URL string `json:"url"`
		} `json:"high"`
	} `json:"thumbnails"`
	ResourceID struct {
		VideoID string `json:"videoId"`
	} `json:"resourceId"`
}

// Search выполняет текстовый поиск и возвращает небольшой набор кандидатов
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.ResolvedItem, error) {
	if limit <= 0 || limit > 25 {
		limit = 5
	}

	val := url.Values{}
	val.Set("part", "snippet")
	val.Set("type", "video")
	val.Set("maxResults", fmt.Sprint(limit))
	val.Set("q", query)
	val.Set("key", c.apiKey)

	var body ytSearchResponse
	if err := c.getJSON(ctx, c.baseURL+"/search?"+val.Encode(), &body); err != nil {
		return nil, err
	}

	out := make([]domain.ResolvedItem, 0, len(body.Items))

	for _, it := range body.Items {
		if it.ID.VideoID == "" || it.Snippet.Title == "" {
			continue
		}

		out = append(out, domain.ResolvedItem{
			ID:        it.ID.VideoID,
			Title:     it.Snippet.Title,
			Thumbnail: thumbnail(it.Snippet, it.ID.VideoID),
		})
	}

	if len(out) == 0 {
		return nil, domain.ErrNoResults
	}

	return out, nil
}

type ytVideosResponse struct {
	Items []struct {
		ID      string    `json:"id"`
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

func (c *Client) videoByID(ctx context.Context, videoID string) ([]domain.ResolvedItem, error) {
	val := url.Values{}
	val.Set("part", "snippet")
	val.Set("id", videoID)
	val.Set("key", c.apiKey)

	var body ytVideosResponse
	if err := c.getJSON(ctx, c.baseURL+"/videos?"+val.Encode(), &body); err != nil {
		return nil, err
	}

	if len(body.Items) == 0 || body.Items[0].Snippet.Title == "" {
		return nil, domain.ErrNoResults
	}

	it := body.Items[0]

	return []domain.ResolvedItem{{
		ID:        it.ID,
		Title:     it.Snippet.Title,
		Thumbnail: thumbnail(it.Snippet, it.ID),
	}}, nil
}

type ytPlaylistItemsResponse struct {
	Items []struct {
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

// playlistItems забирает до PlaylistEntryCap записей, пропуская
// удаленные и приватные видео
func (c *Client) playlistItems(ctx context.Context, playlistID string) ([]domain.ResolvedItem, error) {
	val := url.Values{}
	val.Set("part", "snippet")
	val.Set("playlistId", playlistID)
	val.Set("maxResults", fmt.Sprint(PlaylistEntryCap))
	val.Set("key", c.apiKey)

	var body ytPlaylistItemsResponse
	if err := c.getJSON(ctx, c.baseURL+"/playlistItems?"+val.Encode(), &body); err != nil {
		return nil, err
	}

	out := make([]domain.ResolvedItem, 0, len(body.Items))

	for _, it := range body.Items {
		id := it.Snippet.ResourceID.VideoID
		title := it.Snippet.Title

		if id == "" || title == "" || title == "Deleted video" || title == "Private video" {
			continue
		}

		out = append(out, domain.ResolvedItem{
			ID:        id,
			Title:     title,
			Thumbnail: thumbnail(it.Snippet, id),
		})
	}

	if len(out) == 0 {
		return nil, domain.ErrNoResults
	}

	return out, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	start := time.Now()

	resp, err := c.http.Do(req)

	metric.RecordResolverRequest(time.Since(start))

	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}

func thumbnail(s ytSnippet, videoID string) string {
	thumb := s.Thumbnails.High.URL
	if thumb == "" {
		thumb = s.Thumbnails.Medium.URL
	}
	if thumb == "" {
		thumb = s.Thumbnails.Default.URL
	}
	if thumb == "" {
		thumb = fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoID)
	}

	return thumb
}

// parseReference распознает ссылку на видео или плейлист.
// Неизвестный ввод уходит в текстовый поиск.
func parseReference(ref string) (videoID, playlistID string) {
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return "", ""
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")

	switch host {
	case "youtu.be":
		videoID = strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		q := u.Query()

		playlistID = q.Get("list")
		videoID = q.Get("v")

		if videoID == "" && strings.HasPrefix(u.Path, "/shorts/") {
			videoID = strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
		}
	}

	// Микс (RD...) без отдельного эндпоинта - ведем себя как одиночное видео
	if strings.HasPrefix(playlistID, "RD") && videoID != "" {
		playlistID = ""
	}

	return videoID, playlistID
}
