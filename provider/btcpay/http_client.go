package btcpay

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	escrow "github.com/Liltopzj/wealthescrow-bot"
)

type client struct {
	httpClient *http.Client
	token      string
}

func newClient(token string, timeout time.Duration) *client {
	return &client{
		httpClient: &http.Client{Timeout: timeout},
		token:      token,
	}
}

func (c *client) GETAndUnmarshalJson(link string, out interface{}) error {
	req, err := http.NewRequest("GET", link, nil)
	if err != nil {
		return errors.Wrap(err, "Failed new request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "token "+c.token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &escrow.TransportError{Op: "GET " + link, Err: err}
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "Failed read all body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &escrow.GatewayError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrap(err, "Failed unmarshal")
	}
	return nil
}

func (c *client) POSTAndUnmarshalJson(link string, in, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "Failed marshal")
	}
	req, err := http.NewRequest("POST", link, bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "Failed new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "token "+c.token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &escrow.TransportError{Op: "POST " + link, Err: err}
	}
	defer resp.Body.Close()
	b, err = io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "Failed read all body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &escrow.GatewayError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrap(err, "Failed unmarshal")
	}
	return nil
}
