package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestHandler_ServesServiceInfo(t *testing.T) {
	SetServiceInfo("test", "multi-tenant", "memory")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	want := `church_service_info{cache_backend="memory",mode="multi-tenant",version="test"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("metrics output missing %q", want)
	}
}

func TestSetServiceInfo_Replaces(t *testing.T) {
	SetServiceInfo("v1", "single-tenant", "redis")
	SetServiceInfo("v2", "single-tenant", "redis")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if strings.Contains(body, `version="v1"`) {
		t.Error("old service info should be replaced")
	}
	if !strings.Contains(body, `version="v2"`) {
		t.Error("new service info should be present")
	}
}
