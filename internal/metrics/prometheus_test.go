package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	cases := map[int]string{200: "2xx", 201: "2xx", 302: "3xx", 402: "4xx", 409: "4xx", 500: "5xx", 99: "unknown"}
	for code, want := range cases {
		assert.Equal(t, want, classifyStatus(code), "code %d", code)
	}
}

func TestAuditDropped(t *testing.T) {
	before := testutil.ToFloat64(auditDropped)
	AuditDropped()
	assert.Equal(t, before+1, testutil.ToFloat64(auditDropped))
}

func TestFeatureTransition(t *testing.T) {
	c := featureTransitions.WithLabelValues("active")
	before := testutil.ToFloat64(c)
	FeatureTransition("active")
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
