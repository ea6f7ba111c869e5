package memory_test

import (
	"testing"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/adapters/memory"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunPipelineStoreContract(t, store)
}
