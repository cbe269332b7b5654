package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/coffersec/coffer/api/types/v1alpha1"
)

// WatchEvents opens the event stream and delivers change notifications
// for secrets the caller may read. The channel closes when the
// connection drops or the context is canceled.
func (c *Client) WatchEvents(ctx context.Context) (<-chan v1alpha1.SecretEvent, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/v1alpha1/secrets/events/ws"

	header := http.Header{}
	if c.accessToken != "" {
		header.Set("Authorization", "Bearer "+c.accessToken)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("not authenticated - run login first")
		}
		return nil, fmt.Errorf("error connecting to event stream: %w", err)
	}

	events := make(chan v1alpha1.SecretEvent)

	go func() {
		<-ctx.Done()
		ws.Close()
	}()

	go func() {
		defer close(events)
		defer ws.Close()
		for {
			var event v1alpha1.SecretEvent
			if err := ws.ReadJSON(&event); err != nil {
				return
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
