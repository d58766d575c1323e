package duration

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUnmarshalJSON(t *testing.T) {
	var v struct {
		Timeout Duration `json:"timeout"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"timeout":"1m30s"}`), &v))
	require.Equal(t, 90*time.Second, v.Timeout.Duration)

	require.Error(t, json.Unmarshal([]byte(`{"timeout":"soon"}`), &v))
	require.Error(t, json.Unmarshal([]byte(`{"timeout":15}`), &v))
}
