package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/erazemk/reclaim/internal/filter"
	"github.com/erazemk/reclaim/internal/model"
)

// ListOptions narrows a material listing on the server side. Zero Size lists
// everything.
type ListOptions struct {
	Filter filter.State
	Page   int
	Size   int
}

func (o ListOptions) query() string {
	v := o.Filter.Values()
	if o.Size > 0 {
		v.Set("page", strconv.Itoa(o.Page))
		v.Set("size", strconv.Itoa(o.Size))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// List fetches materials. The body may be a bare array or a page envelope;
// either way the records are returned. On a malformed body the result is an
// empty slice and the error.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]model.MaterialRecord, error) {
	body, _, err := c.blob(ctx, "/materials"+opts.query())
	if err != nil {
		return []model.MaterialRecord{}, err
	}
	return model.DecodeList[model.MaterialRecord](body)
}

// Get fetches one material.
func (c *Client) Get(ctx context.Context, id int64) (model.MaterialRecord, error) {
	var r model.MaterialRecord
	err := c.call(ctx, http.MethodGet, materialPath(id), nil, &r)
	return r, err
}

// Create stores a new material.
func (c *Client) Create(ctx context.Context, d model.Draft) (model.MaterialRecord, error) {
	var r model.MaterialRecord
	err := c.call(ctx, http.MethodPost, "/materials", d, &r)
	return r, err
}

// Upload is a file to send in a multipart request.
type Upload struct {
	Filename string
	Content  io.Reader
}

// CreateWithPictures stores a new material together with its pictures in one
// multipart request. The first picture becomes the primary one.
func (c *Client) CreateWithPictures(ctx context.Context, d model.Draft, pictures []Upload) (model.MaterialRecord, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="material"; filename="material.json"`)
	h.Set("Content-Type", "application/json")
	part, err := w.CreatePart(h)
	if err != nil {
		return model.MaterialRecord{}, fmt.Errorf("building multipart: %w", err)
	}
	if err := json.NewEncoder(part).Encode(d); err != nil {
		return model.MaterialRecord{}, fmt.Errorf("encoding material: %w", err)
	}
	if err := writeFiles(w, "pictures", pictures); err != nil {
		return model.MaterialRecord{}, err
	}

	var r model.MaterialRecord
	err = c.multipart(ctx, http.MethodPost, "/materials", w, &buf, &r)
	return r, err
}

// Update applies a partial change. Only the fields set in d are sent.
func (c *Client) Update(ctx context.Context, id int64, d model.Draft) (model.MaterialRecord, error) {
	var r model.MaterialRecord
	err := c.call(ctx, http.MethodPut, materialPath(id), d, &r)
	return r, err
}

// Delete removes a material and its pictures.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, materialPath(id), nil, nil)
}

// Stats fetches inventory counts.
func (c *Client) Stats(ctx context.Context) (model.Stats, error) {
	var s model.Stats
	err := c.call(ctx, http.MethodGet, "/materials/stats", nil, &s)
	return s, err
}

// AddPictures attaches pictures to an existing material.
func (c *Client) AddPictures(ctx context.Context, id int64, pictures []Upload) ([]model.Picture, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeFiles(w, "pictures", pictures); err != nil {
		return nil, err
	}
	var out []model.Picture
	err := c.multipart(ctx, http.MethodPost, materialPath(id)+"/pictures", w, &buf, &out)
	return out, err
}

// RemovePicture deletes a picture from a material.
func (c *Client) RemovePicture(ctx context.Context, id, pictureID int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("%s/pictures/%d", materialPath(id), pictureID), nil, nil)
}

// SetPrimaryPicture makes pictureID the material's primary picture.
func (c *Client) SetPrimaryPicture(ctx context.Context, id, pictureID int64) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("%s/pictures/%d/primary", materialPath(id), pictureID), nil, nil)
}

// Picture downloads picture bytes and their content type.
func (c *Client) Picture(ctx context.Context, pictureID int64) ([]byte, string, error) {
	return c.blob(ctx, fmt.Sprintf("/materials/pictures/%d", pictureID))
}

// Import uploads a spreadsheet of materials.
func (c *Client) Import(ctx context.Context, filename string, r io.Reader) (model.ImportSummary, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeFiles(w, "file", []Upload{{Filename: filename, Content: r}}); err != nil {
		return model.ImportSummary{}, err
	}
	var s model.ImportSummary
	err := c.multipart(ctx, http.MethodPost, "/materials/import-excel", w, &buf, &s)
	return s, err
}

// Export downloads every material as a spreadsheet.
func (c *Client) Export(ctx context.Context) ([]byte, error) {
	data, _, err := c.blob(ctx, "/materials/export-excel")
	return data, err
}

// Template downloads an empty import spreadsheet.
func (c *Client) Template(ctx context.Context) ([]byte, error) {
	data, _, err := c.blob(ctx, "/materials/excel-template")
	return data, err
}

// RecentActivity fetches the latest audit trail entries.
func (c *Client) RecentActivity(ctx context.Context) ([]model.Activity, error) {
	return c.activity(ctx, "/audit-trail")
}

// MaterialActivity fetches the audit trail of one material.
func (c *Client) MaterialActivity(ctx context.Context, id int64) ([]model.Activity, error) {
	return c.activity(ctx, fmt.Sprintf("/audit-trail/material/%d", id))
}

func (c *Client) activity(ctx context.Context, path string) ([]model.Activity, error) {
	body, _, err := c.blob(ctx, path)
	if err != nil {
		return []model.Activity{}, err
	}
	return model.DecodeList[model.Activity](body)
}

func materialPath(id int64) string {
	return "/materials/" + url.PathEscape(strconv.FormatInt(id, 10))
}

func writeFiles(w *multipart.Writer, field string, files []Upload) error {
	for _, f := range files {
		part, err := w.CreateFormFile(field, f.Filename)
		if err != nil {
			return fmt.Errorf("building multipart: %w", err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return fmt.Errorf("reading %s: %w", f.Filename, err)
		}
	}
	return nil
}

func (c *Client) multipart(ctx context.Context, method, path string, w *multipart.Writer, buf *bytes.Buffer, out any) error {
	if err := w.Close(); err != nil {
		return fmt.Errorf("building multipart: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}
