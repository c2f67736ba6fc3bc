package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ============================================================================
// Generic resource
// ============================================================================
//
// Resource wraps the CRUD endpoints every collection of the external API
// exposes:
//
//	GET    {endpoint}/{id}
//	GET    {endpoint}?params
//	POST   {endpoint}
//	PUT    {endpoint}/{id}
//	DELETE {endpoint}/{id}
//	POST   {endpoint}/bulk_create

// Resource is a typed collection of the external API.
type Resource[T any] struct {
	client   *Client
	endpoint string
}

// Endpoint returns the collection path.
func (r *Resource[T]) Endpoint() string {
	return r.endpoint
}

// Get fetches one record.
//
// Example:
//
//	item, err := client.Items().Get(ctx, 42)
func (r *Resource[T]) Get(ctx context.Context, id any) (*T, error) {
	var result T
	if err := r.client.do(ctx, http.MethodGet, resourcePath("%s/%v", r.endpoint, id), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// List fetches the collection, filtered by params.
func (r *Resource[T]) List(ctx context.Context, params url.Values) ([]T, error) {
	results := make([]T, 0)
	if err := r.client.do(ctx, http.MethodGet, r.endpoint, params, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Create posts a new record and returns the stored version.
func (r *Resource[T]) Create(ctx context.Context, v T) (*T, error) {
	var result T
	if err := r.client.do(ctx, http.MethodPost, r.endpoint, nil, v, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update replaces a record. body may be a T or a partial map.
func (r *Resource[T]) Update(ctx context.Context, id any, body any) (*T, error) {
	var result T
	if err := r.client.do(ctx, http.MethodPut, resourcePath("%s/%v", r.endpoint, id), nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a record.
func (r *Resource[T]) Delete(ctx context.Context, id any) error {
	return r.client.do(ctx, http.MethodDelete, resourcePath("%s/%v", r.endpoint, id), nil, nil, nil)
}

// BulkCreate posts many records at once. The response body is ignored.
func (r *Resource[T]) BulkCreate(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	return r.client.do(ctx, http.MethodPost, r.endpoint+"/bulk_create", nil, items, nil)
}

// resourcePath builds a resource path by formatting a path template with the given
// arguments using fmt.Sprintf.
//
// Example:
//
//	path := resourcePath("/items/%d", 42)
func resourcePath(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

// QueryFromMap converts flat filter parameters to url.Values.
func QueryFromMap(params map[string]any) url.Values {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, fmt.Sprint(v))
	}
	return q
}
