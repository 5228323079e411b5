package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"voxguard/pkg/domain"
	audit "voxguard/pkg/platform/audit"
	"voxguard/pkg/platform/audit/store/memory"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func TestMirror(t *testing.T) {
	subject := domain.SubjectHash(strings.Repeat("c", 64))
	entry := audit.Entry{
		ID:          uuid.New(),
		SubjectHash: subject,
		Action:      audit.ActionVoiceDeleted,
		Category:    audit.CategoryCompliance,
		IPAddress:   "10.1.1.1",
		Timestamp:   time.Now(),
	}

	t.Run("publishes entry keyed by subject without client metadata", func(t *testing.T) {
		primary := memory.NewInMemoryStore()
		producer := &fakeProducer{}
		m := NewMirror(primary, producer, "audit.compliance")

		require.NoError(t, m.Append(context.Background(), entry))
		require.Len(t, producer.records, 1)
		assert.Equal(t, "audit.compliance", producer.records[0].Topic)
		assert.Equal(t, []byte(subject), producer.records[0].Key)

		var msg map[string]any
		require.NoError(t, json.Unmarshal(producer.records[0].Value, &msg))
		assert.Equal(t, "voice_deleted", msg["action"])
		assert.NotContains(t, msg, "ip_address")

		stored, err := m.ListBySubject(context.Background(), subject)
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})

	t.Run("broker failure does not fail append and opens the breaker", func(t *testing.T) {
		primary := memory.NewInMemoryStore()
		producer := &fakeProducer{err: errors.New("broker down")}
		m := NewMirror(primary, producer, "audit.compliance", WithCircuitBreaker(NewCircuitBreaker(1, time.Hour)))

		require.NoError(t, m.Append(context.Background(), entry))
		assert.True(t, m.breaker.IsOpen())

		stored, err := primary.ListBySubject(context.Background(), subject)
		require.NoError(t, err)
		assert.Len(t, stored, 1)
	})
}
