package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/proof/internal/core/ports"
)

const (
	// StoreNodeID provides the concrete *Store, used by the clean command.
	StoreNodeID graft.ID = "adapter.cas.store"
	// NodeID provides the store as ports.BuildInfoStore.
	NodeID graft.ID = "adapter.build_info_store"
)

func init() {
	graft.Register(graft.Node[*Store]{
		ID:        StoreNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Store, error) {
			return NewStore(), nil
		},
	})

	graft.Register(graft.Node[ports.BuildInfoStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{StoreNodeID},
		Run: func(ctx context.Context) (ports.BuildInfoStore, error) {
			store, err := graft.Dep[*Store](ctx)
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	})
}
