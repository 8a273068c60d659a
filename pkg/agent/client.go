package agent

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/turnroom/turnroom/pkg/api"
	"github.com/turnroom/turnroom/pkg/conference"
)

// Client calls the coordinator HTTP API.
type Client struct {
	server string
	http   *http.Client
}

func NewClient(server string) *Client {
	return &Client{
		server: strings.TrimSuffix(server, "/"),
		http: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
			Timeout:       10 * time.Second,
		},
	}
}

func (c *Client) Rooms(ctx context.Context) ([]api.RoomInfo, error) {
	var rooms []api.RoomInfo
	return rooms, c.get(ctx, "/api/rooms", &rooms)
}

// Room returns the state of a room, the default room for the empty id.
func (c *Client) Room(ctx context.Context, id string) (*conference.Snapshot, error) {
	var state conference.Snapshot
	if err := c.get(ctx, "/api/rooms/"+url.PathEscape(id), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// NewRoom opens a new room and returns its id.
func (c *Client) NewRoom(ctx context.Context) (string, error) {
	rq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/new", nil)
	if err != nil {
		return "", err
	}
	rs, err := c.http.Do(rq)
	if err != nil {
		return "", err
	}
	_ = rs.Body.Close()
	if rs.StatusCode != http.StatusFound {
		return "", fmt.Errorf("new room: %v", rs.Status)
	}
	loc, err := url.Parse(rs.Header.Get("Location"))
	if err != nil {
		return "", err
	}
	return loc.Query().Get("room"), nil
}

// Reserve posts the join form and returns the room id from the redirect.
func (c *Client) Reserve(ctx context.Context, room, name string) (string, error) {
	form := url.Values{"username": {name}, "room": {room}}
	rq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	rq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rs, err := c.http.Do(rq)
	if err != nil {
		return "", err
	}
	_ = rs.Body.Close()
	if rs.StatusCode != http.StatusFound {
		return "", fmt.Errorf("join form: %v", rs.Status)
	}
	loc, err := url.Parse(rs.Header.Get("Location"))
	if err != nil {
		return "", err
	}
	id, ok := strings.CutPrefix(loc.Path, "/room/")
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %v", ErrRejected, loc.Query().Get("message"))
	}
	return id, nil
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	rq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.server+path, nil)
	if err != nil {
		return err
	}
	rs, err := c.http.Do(rq)
	if err != nil {
		return err
	}
	defer func() { _ = rs.Body.Close() }()
	if rs.StatusCode != http.StatusOK {
		return fmt.Errorf("%v: %v", path, rs.Status)
	}
	return json.NewDecoder(rs.Body).Decode(v)
}
