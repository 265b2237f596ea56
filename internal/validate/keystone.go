package validate

import (
	"net/http"

	"github.com/wardenhq/warden/internal/model"
)

// KeystoneAugment injects tenant/user provenance from request headers onto
// a sample when present, mirroring kiloeyes/middleware/keystone_augmenter.py
// (supplemented feature, see SPEC_FULL.md §12). It never overwrites a field
// the caller already set in the body.
func KeystoneAugment(s *model.Sample, h http.Header) {
	assignIfEmpty(&s.Tenant, h.Get("X-Tenant-Name"))
	assignIfEmpty(&s.TenantID, h.Get("X-Tenant-Id"))
	assignIfEmpty(&s.User, h.Get("X-User-Name"))
	assignIfEmpty(&s.UserAgent, h.Get("User-Agent"))
	assignIfEmpty(&s.ProjectID, h.Get("X-Project-Id"))
	assignIfEmpty(&s.UserID, h.Get("X-User-Id"))
}

func assignIfEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}
