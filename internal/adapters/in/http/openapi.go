package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/swaggo/swag"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// LoadOpenAPI parses and validates the embedded API description.
func LoadOpenAPI(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err = doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return doc, nil
}

// apiDoc serves the document to swagger-ui. swag keeps a process-wide
// registry that panics on duplicate names, so it is registered once and
// RegisterDocs swaps its content.
type apiDoc struct {
	json atomic.Value
}

func (d *apiDoc) ReadDoc() string {
	s, _ := d.json.Load().(string)
	return s
}

var (
	docs         = &apiDoc{}
	registerDocs sync.Once
)

// RegisterDocs serves doc as /swagger/doc.json together with swagger-ui
// under /swagger/.
func RegisterDocs(e *echo.Echo, doc *openapi3.T) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal openapi document: %w", err)
	}
	docs.json.Store(string(data))
	registerDocs.Do(func() { swag.Register(swag.Name, docs) })

	e.GET("/swagger/*", echoSwagger.WrapHandler)
	return nil
}
