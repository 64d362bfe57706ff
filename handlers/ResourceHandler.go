// Package handlers provides the HTTP request handlers for the UserManagerService gateway.
//
// The gateway is a generic REST-over-JSON wrapper around the file-backed document in package store.
// Every top-level collection of the document is exposed as a resource under /api/{resource}, with
// handlers for listing, retrieval, creation, replacement, partial update and deletion.
// Resources that have a compiled field schema (users) have their request bodies validated with the same
// schema the user interface validates its form with, and every string field is trimmed before it is stored.
//
// For more information on the available endpoints, please refer to the individual handler function documentation.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"UserManagerService/response"
	"UserManagerService/store"
	"UserManagerService/validation"
)

// ResourceHandler serves the /api routes over a store.
type ResourceHandler struct {
	store   *store.Store
	schemas map[string]*validation.Schema
	log     *logrus.Logger
}

// NewResourceHandler returns a handler over s. schemas maps a resource name to the schema its bodies must satisfy.
func NewResourceHandler(s *store.Store, schemas map[string]*validation.Schema, log *logrus.Logger) *ResourceHandler {
	if log == nil {
		log = logrus.New()
	}
	return &ResourceHandler{store: s, schemas: schemas, log: log}
}

// Health answers the liveness probe at the root path with plain text.
func (h *ResourceHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "API is running")
}

// List handles the HTTP request for retrieving every record of a resource.
//
// Example request:
// GET /api/users
//
// Example response:
//
//	[
//	  {
//	    "id": "0b6c5e4e-7f51-4b8e-9a43-3f1c2a8d9e10",
//	    "firstName": "Jo",
//	    "lastName": "Lee",
//	    "phoneNumber": "9876543210",
//	    "email": "jo@x.com"
//	  },
//	  ... ]
//
// An unknown resource returns 404.
func (h *ResourceHandler) List(c *gin.Context) {
	resource := c.Param("resource")
	records, err := h.store.List(c.Request.Context(), resource)
	if err != nil {
		h.fail(c, "list records", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Get handles the HTTP request for retrieving one record by id.
//
// Example request:
// GET /api/users/0b6c5e4e-7f51-4b8e-9a43-3f1c2a8d9e10
//
// A missing record returns 404.
func (h *ResourceHandler) Get(c *gin.Context) {
	rec, err := h.store.Get(c.Request.Context(), c.Param("resource"), c.Param("id"))
	if err != nil {
		h.fail(c, "get record by id", err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Create handles the HTTP request for creating a record.
// The gateway assigns the id; an id in the request body is ignored.
//
// Example request body:
//
//	{
//	  "firstName": "Jo",
//	  "lastName": "Lee",
//	  "phoneNumber": "9876543210",
//	  "email": "jo@x.com"
//	}
//
// Example response (201 Created):
//
//	{
//	  "id": "0b6c5e4e-7f51-4b8e-9a43-3f1c2a8d9e10",
//	  "firstName": "Jo",
//	  "lastName": "Lee",
//	  "phoneNumber": "9876543210",
//	  "email": "jo@x.com"
//	}
//
// A body failing the resource schema returns 400 with the field messages under "errors".
func (h *ResourceHandler) Create(c *gin.Context) {
	const operation = "create record"
	resource := c.Param("resource")
	rec, ok := h.decode(c, operation, resource, false)
	if !ok {
		return
	}
	created, err := h.store.Create(c.Request.Context(), resource, rec)
	if err != nil {
		h.fail(c, operation, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"operation": operation,
		"resource":  resource,
		"id":        created.ID(),
	}).Info("record created")
	c.JSON(http.StatusCreated, created)
}

// Replace handles the HTTP request for replacing a record.
// The stored record becomes the request body, keeping its id.
//
// Example request:
// PUT /api/users/0b6c5e4e-7f51-4b8e-9a43-3f1c2a8d9e10
func (h *ResourceHandler) Replace(c *gin.Context) {
	const operation = "replace record"
	resource, id := c.Param("resource"), c.Param("id")
	rec, ok := h.decode(c, operation, resource, false)
	if !ok {
		return
	}
	updated, err := h.store.Replace(c.Request.Context(), resource, id, rec)
	if err != nil {
		h.fail(c, operation, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"operation": operation,
		"resource":  resource,
		"id":        id,
	}).Info("record replaced")
	c.JSON(http.StatusOK, updated)
}

// Patch handles the HTTP request for partially updating a record.
// Only the keys present in the body change; schema rules apply to those keys only.
func (h *ResourceHandler) Patch(c *gin.Context) {
	const operation = "patch record"
	resource, id := c.Param("resource"), c.Param("id")
	rec, ok := h.decode(c, operation, resource, true)
	if !ok {
		return
	}
	updated, err := h.store.Patch(c.Request.Context(), resource, id, rec)
	if err != nil {
		h.fail(c, operation, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"operation": operation,
		"resource":  resource,
		"id":        id,
	}).Info("record patched")
	c.JSON(http.StatusOK, updated)
}

// Delete handles the HTTP request for deleting a record.
// It returns 200 with an empty JSON object, or 404 if the record does not exist.
func (h *ResourceHandler) Delete(c *gin.Context) {
	const operation = "delete record"
	resource, id := c.Param("resource"), c.Param("id")
	if err := h.store.Delete(c.Request.Context(), resource, id); err != nil {
		h.fail(c, operation, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"operation": operation,
		"resource":  resource,
		"id":        id,
	}).Info("record deleted")
	c.JSON(http.StatusOK, gin.H{})
}

// decode reads a JSON object body, trims it and checks it against the resource schema.
// It writes the error response and returns false when the body is unusable.
func (h *ResourceHandler) decode(c *gin.Context, operation, resource string, partial bool) (store.Record, bool) {
	var rec store.Record
	if err := c.ShouldBindJSON(&rec); err != nil || rec == nil {
		h.log.WithFields(logrus.Fields{
			"operation": operation,
			"request":   c.Request.Method + " " + c.Request.URL.Path,
		}).Error("Invalid request body")
		c.JSON(http.StatusBadRequest, response.Failed("Invalid request body"))
		return nil, false
	}
	sanitizeRecord(rec)

	schema, ok := h.schemas[resource]
	if !ok {
		return rec, true
	}
	if errs := checkRecord(schema, rec, partial); errs != nil {
		h.log.WithFields(logrus.Fields{
			"operation": operation,
			"request":   c.Request.Method + " " + c.Request.URL.Path,
			"errors":    errs,
		}).Error("Invalid request body inputs")
		msg := response.Failed("Invalid request body inputs")
		msg.Errors = errs
		c.JSON(http.StatusBadRequest, msg)
		return nil, false
	}
	return rec, true
}

// fail maps a store error to a status and writes a generic message.
func (h *ResourceHandler) fail(c *gin.Context, operation string, err error) {
	fields := logrus.Fields{
		"operation": operation,
		"request":   c.Request.Method + " " + c.Request.URL.Path,
	}
	switch {
	case errors.Is(err, store.ErrResourceNotFound):
		h.log.WithFields(fields).Warn(err.Error())
		c.JSON(http.StatusNotFound, response.Failed("Resource not found"))
	case errors.Is(err, store.ErrRecordNotFound):
		h.log.WithFields(fields).Warn(err.Error())
		c.JSON(http.StatusNotFound, response.Failed("Record not found"))
	default:
		h.log.WithFields(fields).Error(err.Error())
		c.JSON(http.StatusInternalServerError, response.Failed("Unsuccessful "+operation+" operation"))
	}
}

// sanitizeRecord trims surrounding whitespace from every string value.
func sanitizeRecord(rec store.Record) {
	for k, v := range rec {
		if s, ok := v.(string); ok {
			rec[k] = strings.TrimSpace(s)
		}
	}
}

// checkRecord validates the schema fields of rec. When partial is set only the keys present are checked.
func checkRecord(schema *validation.Schema, rec store.Record, partial bool) validation.Errors {
	values := make(map[string]string, len(rec))
	var errs validation.Errors
	for _, f := range schema.Fields() {
		raw, present := rec[f.Name]
		if !present || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			if errs == nil {
				errs = make(validation.Errors)
			}
			errs[f.Name] = f.Label + " must be a string"
			continue
		}
		values[f.Name] = s
	}

	if partial {
		for name, value := range values {
			if msg, ok := schema.ValidateField(name, value); !ok {
				if errs == nil {
					errs = make(validation.Errors)
				}
				errs[name] = msg
			}
		}
		return errs
	}

	for name, msg := range schema.Validate(values) {
		if _, seen := errs[name]; seen {
			continue
		}
		if errs == nil {
			errs = make(validation.Errors)
		}
		errs[name] = msg
	}
	return errs
}
