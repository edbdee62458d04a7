package gameapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClient is the production Client implementation: it issues REST calls
// against the game's public API and throttles itself with a token-bucket
// limiter so the bot never hammers the server (spec.md §1, "polite rate
// limiting" is the only real-time requirement in scope).
type HTTPClient struct {
	baseURL string
	token   string
	hc      *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient builds a client that allows at most requestsPerSecond
// requests per second, bursting up to burst.
func NewHTTPClient(baseURL, token string, requestsPerSecond float64, burst int, timeout time.Duration) *HTTPClient {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 3
	}
	if burst <= 0 {
		burst = 3
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		hc:      &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

var _ Client = (*HTTPClient)(nil)

type wireCharacter struct {
	Name               string `json:"name"`
	Level              int    `json:"level"`
	HP                 int    `json:"hp"`
	MaxHP              int    `json:"max_hp"`
	XP                 int    `json:"xp"`
	X                  int    `json:"x"`
	Y                  int    `json:"y"`
	Weapon             string `json:"weapon_slot"`
	InventoryMaxItems  int    `json:"inventory_max_items"`
	InventoryItemCount int    `json:"inventory_item_count"`
	Cooldown           int    `json:"cooldown"`
	CooldownExpiration string `json:"cooldown_expiration"`
}

type wireEnvelope struct {
	Data struct {
		Character wireCharacter `json:"character"`
		Fight     *struct {
			Won         bool   `json:"won"`
			Monster     string `json:"monster"`
			DamageTaken int    `json:"damage_taken"`
			XP          int    `json:"xp"`
		} `json:"fight"`
		Item struct {
			Code     string `json:"code"`
			Quantity int    `json:"quantity"`
		} `json:"item"`
	} `json:"data"`
}

// request issues the HTTP call and returns the raw response body, shared by
// do (single-object responses) and the list endpoints (GetMap, ScanMonsters)
// whose payload shape doesn't fit wireEnvelope's single "data" object.
func (c *HTTPClient) request(ctx context.Context, method, path string, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &APIError{Kind: ErrorTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: ErrorTransport, Message: err.Error()}
	}

	if resp.StatusCode >= 400 {
		return nil, classifyHTTPError(resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*wireEnvelope, error) {
	respBody, err := c.request(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var env wireEnvelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil {
			return nil, &APIError{Kind: ErrorTransport, Message: fmt.Sprintf("decoding response: %v", err)}
		}
	}
	return &env, nil
}

// classifyHTTPError maps the server's free-text error message to an
// ErrorKind using the substring checks named in spec.md §6: the game API
// does not publish a machine-readable error taxonomy, only prose.
func classifyHTTPError(status int, message string) *APIError {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "cooldown"):
		return &APIError{Kind: ErrorCooldown, Message: message}
	case strings.Contains(lower, "not found"):
		return &APIError{Kind: ErrorNotFound, Message: message}
	case strings.Contains(lower, "already at this location"):
		return &APIError{Kind: ErrorInvalidState, Message: message}
	case strings.Contains(lower, "action is not allowed"):
		return &APIError{Kind: ErrorForbidden, Message: message}
	case status >= 500:
		return &APIError{Kind: ErrorTransport, Message: message}
	default:
		return &APIError{Kind: ErrorInvalidState, Message: message}
	}
}

func (c *HTTPClient) GetCharacter(ctx context.Context, name string) (CharacterResponse, error) {
	env, err := c.do(ctx, http.MethodGet, "/characters/"+name, nil)
	if err != nil {
		return CharacterResponse{}, err
	}
	return extractCharacterResponse(env), nil
}

func (c *HTTPClient) MoveCharacter(ctx context.Context, name string, x, y int) (CharacterResponse, error) {
	env, err := c.do(ctx, http.MethodPost, "/my/"+name+"/action/move", map[string]int{"x": x, "y": y})
	if err != nil {
		return CharacterResponse{}, err
	}
	return extractCharacterResponse(env), nil
}

func (c *HTTPClient) GatherAt(ctx context.Context, name string) (GatherResponse, error) {
	env, err := c.do(ctx, http.MethodPost, "/my/"+name+"/action/gathering", nil)
	if err != nil {
		return GatherResponse{}, err
	}
	return GatherResponse{
		CharacterResponse: extractCharacterResponse(env),
		ItemCode:          env.Data.Item.Code,
		Quantity:          env.Data.Item.Quantity,
	}, nil
}

func (c *HTTPClient) FightAt(ctx context.Context, name string) (FightResponse, error) {
	env, err := c.do(ctx, http.MethodPost, "/my/"+name+"/action/fight", nil)
	if err != nil {
		return FightResponse{}, err
	}
	out := FightResponse{CharacterResponse: extractCharacterResponse(env)}
	if env.Data.Fight != nil {
		out.Won = env.Data.Fight.Won
		out.MonsterCode = env.Data.Fight.Monster
		out.DamageTaken = env.Data.Fight.DamageTaken
		out.XPGained = env.Data.Fight.XP
	}
	return out, nil
}

func (c *HTTPClient) CraftItem(ctx context.Context, name, itemCode string, quantity int) (CraftResponse, error) {
	env, err := c.do(ctx, http.MethodPost, "/my/"+name+"/action/crafting", map[string]any{"code": itemCode, "quantity": quantity})
	if err != nil {
		return CraftResponse{}, err
	}
	return CraftResponse{
		CharacterResponse: extractCharacterResponse(env),
		ItemCode:          itemCode,
		Quantity:          quantity,
	}, nil
}

func (c *HTTPClient) RestCharacter(ctx context.Context, name string) (CharacterResponse, error) {
	env, err := c.do(ctx, http.MethodPost, "/my/"+name+"/action/rest", nil)
	if err != nil {
		return CharacterResponse{}, err
	}
	return extractCharacterResponse(env), nil
}

// wireMapTile models a single map-tile lookup's content field: nil/absent
// Content means an empty tile, otherwise Type is "monster"/"resource"/
// "workshop" and Code names what's there.
type wireMapTile struct {
	Data struct {
		X       int `json:"x"`
		Y       int `json:"y"`
		Content *struct {
			Type string `json:"type"`
			Code string `json:"code"`
		} `json:"content"`
	} `json:"data"`
}

func (c *HTTPClient) GetMap(ctx context.Context, x, y int) (MapTile, error) {
	respBody, err := c.request(ctx, http.MethodGet, fmt.Sprintf("/maps/%d/%d", x, y), nil)
	if err != nil {
		return MapTile{}, err
	}

	tile := MapTile{X: x, Y: y, Kind: "empty", ScanAt: time.Now()}
	if len(respBody) == 0 {
		return tile, nil
	}
	var wire wireMapTile
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return MapTile{}, &APIError{Kind: ErrorTransport, Message: fmt.Sprintf("decoding map response: %v", err)}
	}
	if wire.Data.Content != nil {
		tile.Kind = wire.Data.Content.Type
		tile.Code = wire.Data.Content.Code
	}
	return tile, nil
}

// wireMonsterList models the scan-radius monster listing; each entry's x/y
// default to the scan center when the server omits per-monster coordinates.
type wireMonsterList struct {
	Data []struct {
		Code  string `json:"code"`
		Level int    `json:"level"`
		X     *int   `json:"x"`
		Y     *int   `json:"y"`
	} `json:"data"`
}

func (c *HTTPClient) ScanMonsters(ctx context.Context, x, y, radius int) ([]MonsterSchema, error) {
	respBody, err := c.request(ctx, http.MethodGet, fmt.Sprintf("/monsters?x=%d&y=%d&radius=%d", x, y, radius), nil)
	if err != nil {
		return nil, err
	}
	if len(respBody) == 0 {
		return nil, nil
	}

	var wire wireMonsterList
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, &APIError{Kind: ErrorTransport, Message: fmt.Sprintf("decoding monster list: %v", err)}
	}

	out := make([]MonsterSchema, 0, len(wire.Data))
	for _, m := range wire.Data {
		schema := MonsterSchema{Code: m.Code, Level: m.Level, X: x, Y: y}
		if m.X != nil {
			schema.X = *m.X
		}
		if m.Y != nil {
			schema.Y = *m.Y
		}
		out = append(out, schema)
	}
	return out, nil
}
