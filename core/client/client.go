/*
Package client provides easy access to the drinks REST api

The client either talks to a running service through HTTP, or directly to
the mux router without marshalling HTTP. The latter is perfectly suited for
unit tests:

	c := client.NewWithRouter(router).WithToken(token)
	var created drinks.LongDrink
	status, err := c.CreateDrink("Mocha", recipe, &created)
*/
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/drinks/core/drinks"
)

// Client provides easy access to the REST API.
type Client struct {
	router     *mux.Router
	httpClient *http.Client
	url        string
	token      string
	ctx        context.Context

	defaultHeaders map[string]string
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router
func NewWithRouter(router *mux.Router) Client {
	return Client{
		router:         router,
		defaultHeaders: map[string]string{},
	}
}

// NewWithURL creates a client to make REST requests to the backend
func NewWithURL(url string) Client {
	return Client{
		url:            strings.TrimSuffix(url, "/"),
		httpClient:     &http.Client{Timeout: 20 * time.Second},
		defaultHeaders: map[string]string{},
	}
}

// WithToken returns a new client which sends token as bearer token
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// WithHeader returns a new client with a default header added
func (c Client) WithHeader(key string, value string) Client {
	headers := make(map[string]string, len(c.defaultHeaders)+1)
	for k, v := range c.defaultHeaders {
		headers[k] = v
	}
	headers[key] = value
	c.defaultHeaders = headers
	return c
}

// WithContext returns a new client with specific request context
func (c Client) WithContext(ctx context.Context) Client {
	c.ctx = ctx
	return c
}

// Context returns the request context of the client
func (c Client) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Error is returned for all responses which are not successful
type Error struct {
	StatusCode int
	// Message is the message of the error response, or the raw body
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

func (c Client) do(method, path string, body interface{}, result interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		j, ok := body.([]byte)
		if !ok {
			var err error
			j, err = json.Marshal(body)
			if err != nil {
				return http.StatusBadRequest, err
			}
		}
		reader = bytes.NewBuffer(j)
	}

	r, err := http.NewRequestWithContext(c.Context(), method, c.url+path, reader)
	if err != nil {
		return http.StatusBadRequest, err
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.defaultHeaders {
		r.Header.Add(key, value)
	}
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}

	var res *http.Response
	var resBody []byte
	if c.router != nil {
		rec := httptest.NewRecorder()
		c.router.ServeHTTP(rec, r)
		res = rec.Result()
		resBody = rec.Body.Bytes()
	} else {
		res, err = c.httpClient.Do(r)
		if err != nil {
			return http.StatusInternalServerError, err
		}
		defer res.Body.Close()
		resBody, _ = io.ReadAll(res.Body)
	}

	status := res.StatusCode
	if status != http.StatusOK {
		var e struct {
			Message string `json:"message"`
		}
		message := strings.TrimSpace(string(resBody))
		if json.Unmarshal(resBody, &e) == nil && e.Message != "" {
			message = e.Message
		}
		return status, &Error{StatusCode: status, Message: message}
	}

	if len(resBody) > 0 && result != nil {
		if raw, ok := result.(*[]byte); ok {
			*raw = resBody
		} else {
			err = json.Unmarshal(resBody, result)
		}
	}
	return status, err
}

// RawGet gets the resource from path. Expects http.StatusOK as response, otherwise it will
// flag an error. Returns the actual http status code.
//
// result can be a struct, map[string]interface{} or a raw *[]byte.
// result can be nil.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	return c.do(http.MethodGet, path, nil, result)
}

// RawPost posts body to path. body can be a raw []byte or anything that marshals to JSON.
func (c Client) RawPost(path string, body interface{}, result interface{}) (int, error) {
	return c.do(http.MethodPost, path, body, result)
}

// RawPatch patches the resource at path
func (c Client) RawPatch(path string, body interface{}, result interface{}) (int, error) {
	return c.do(http.MethodPatch, path, body, result)
}

// RawDelete deletes the resource at path
func (c Client) RawDelete(path string, result interface{}) (int, error) {
	return c.do(http.MethodDelete, path, nil, result)
}

type shortResponse struct {
	Success bool                `json:"success"`
	Drinks  []drinks.ShortDrink `json:"drinks"`
}

type longResponse struct {
	Success bool               `json:"success"`
	Drinks  []drinks.LongDrink `json:"drinks"`
}

func first(r longResponse, result *drinks.LongDrink) error {
	if len(r.Drinks) != 1 {
		return fmt.Errorf("expected one drink, got %d", len(r.Drinks))
	}
	if result != nil {
		*result = r.Drinks[0]
	}
	return nil
}

// Drinks lists the short form of all drinks
func (c Client) Drinks(result *[]drinks.ShortDrink) (int, error) {
	var r shortResponse
	status, err := c.RawGet("/drinks", &r)
	if err == nil && result != nil {
		*result = r.Drinks
	}
	return status, err
}

// DrinksDetail lists the long form of all drinks
func (c Client) DrinksDetail(result *[]drinks.LongDrink) (int, error) {
	var r longResponse
	status, err := c.RawGet("/drinks-detail", &r)
	if err == nil && result != nil {
		*result = r.Drinks
	}
	return status, err
}

// CreateDrink creates a new drink
func (c Client) CreateDrink(title string, recipe drinks.Recipe, result *drinks.LongDrink) (int, error) {
	if recipe == nil {
		recipe = drinks.Recipe{}
	}
	body := map[string]interface{}{
		"title":  title,
		"recipe": recipe,
	}
	var r longResponse
	status, err := c.RawPost("/drinks", body, &r)
	if err != nil {
		return status, err
	}
	return status, first(r, result)
}

// UpdateDrink applies changes to the drink with id. Nil fields are not sent.
func (c Client) UpdateDrink(id int64, changes drinks.Changes, result *drinks.LongDrink) (int, error) {
	body := map[string]interface{}{}
	if changes.Title != nil {
		body["title"] = *changes.Title
	}
	if changes.Recipe != nil {
		body["recipe"] = *changes.Recipe
	}
	var r longResponse
	status, err := c.RawPatch("/drinks/"+strconv.FormatInt(id, 10), body, &r)
	if err != nil {
		return status, err
	}
	return status, first(r, result)
}

// DeleteDrink deletes the drink with id
func (c Client) DeleteDrink(id int64) (int, error) {
	var r struct {
		Success bool  `json:"success"`
		Delete  int64 `json:"delete"`
	}
	status, err := c.RawDelete("/drinks/"+strconv.FormatInt(id, 10), &r)
	if err == nil && r.Delete != id {
		err = fmt.Errorf("deleted %d instead of %d", r.Delete, id)
	}
	return status, err
}

// Version returns the build version of the service
func (c Client) Version() (string, int, error) {
	var r struct {
		Version string `json:"version"`
	}
	status, err := c.RawGet("/version", &r)
	return r.Version, status, err
}
