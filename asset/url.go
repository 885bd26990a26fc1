package asset

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Default asset server settings.
const (
	DefaultBaseURL = "http://asset-cdn.glb.agni.lindenlab.com"
	DefaultIDParam = "texture_id"
)

// TextureURL builds the URL of the asset id on the server at base, passing
// the id as query parameter param. The id must be a UUID; it is otherwise
// opaque.
func TextureURL(base, param, id string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("asset: invalid asset id %q: %w", id, err)
	}
	if base == "" {
		base = DefaultBaseURL
	}
	if param == "" {
		param = DefaultIDParam
	}
	q := url.Values{param: []string{u.String()}}
	return strings.TrimSuffix(base, "/") + "/?" + q.Encode(), nil
}
