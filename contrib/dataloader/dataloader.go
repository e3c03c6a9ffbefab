// Package dataloader provides batch loading of graph entities by uid.
//
// It is designed to back any DataLoader implementation such as
// github.com/graph-gophers/dataloader/v7: the batch function returned by
// BatchByUID loads every requested uid with one statement and returns the
// instances in the order of the keys.
//
//	batch := dataloader.BatchByUID(drv, PersonType)
//	people, errs := batch(ctx, []string{uid1, uid2})
package dataloader

import (
	"context"
	"errors"

	"github.com/syssam/cypher/dialect"
	"github.com/syssam/cypher/graph"
	"github.com/syssam/cypher/predicate"
	"github.com/syssam/cypher/query"
	"github.com/syssam/cypher/schema/mixin"
)

// ErrNotFound is returned when an entity is not found in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc is a function that loads a batch of entities by their keys.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, []error)

// OrderByKeys reorders entities to match the order of requested keys.
// Missing entities are represented as zero values with corresponding errors.
//
// The result slices have the length of keys, as DataLoader implementations
// require.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// GroupByKey groups entities by a key function.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys reorders grouped entities to match the order of requested keys.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

// UID is the KeyFunc of graph instances.
func UID(inst *graph.Instance) string { return inst.UID() }

// LoadByUID loads the entities of the type with the given uids in one
// statement. The results follow the order of uids; a uid without entity
// yields a nil instance and ErrNotFound. A failing statement fails every key.
func LoadByUID(ctx context.Context, drv dialect.Driver, typ *graph.Type, uids []string) ([]*graph.Instance, []error) {
	if len(uids) == 0 {
		return nil, nil
	}
	keys := make([]any, len(uids))
	for i, uid := range uids {
		keys[i] = uid
	}
	records, err := query.New(drv).
		Match(query.As(typ, "n"), predicate.In(typ.Prop(mixin.UIDField), keys...)).
		Result(ctx, "n")
	if err != nil {
		return nil, fill(len(uids), err)
	}
	insts := make([]*graph.Instance, 0, len(records))
	for _, rec := range records {
		if inst, ok := rec.Instance("n"); ok {
			insts = append(insts, inst)
		}
	}
	return OrderByKeys(uids, insts, UID)
}

// BatchByUID returns the batch function loading entities of the type.
func BatchByUID(drv dialect.Driver, typ *graph.Type) BatchFunc[string, *graph.Instance] {
	return func(ctx context.Context, uids []string) ([]*graph.Instance, []error) {
		return LoadByUID(ctx, drv, typ, uids)
	}
}

// LoadConnected loads, for every uid of a node of type from, the nodes of
// type to reached through an outgoing edge of the given type. The groups
// follow the order of uids.
//
//	friends, err := dataloader.LoadConnected(ctx, drv, PersonType, KnowsType, PersonType, uids)
func LoadConnected(ctx context.Context, drv dialect.Driver, from, edge, to *graph.Type, uids []string) ([][]*graph.Instance, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	keys := make([]any, len(uids))
	for i, uid := range uids {
		keys[i] = uid
	}
	records, err := query.New(drv).
		Match(query.As(from, "src"), predicate.In(from.Prop(mixin.UIDField), keys...)).
		ConnectedThrough(query.As(edge, "rel")).
		To(query.As(to, "dst")).
		Result(ctx, "src", "dst")
	if err != nil {
		return nil, err
	}
	type pair struct{ src, dst *graph.Instance }
	pairs := make([]pair, 0, len(records))
	for _, rec := range records {
		src, ok := rec.Instance("src")
		if !ok {
			continue
		}
		if dst, ok := rec.Instance("dst"); ok {
			pairs = append(pairs, pair{src, dst})
		}
	}
	grouped := GroupByKey(pairs, func(p pair) string { return p.src.UID() })
	groups := make(map[string][]*graph.Instance, len(grouped))
	for uid, ps := range grouped {
		for _, p := range ps {
			groups[uid] = append(groups[uid], p.dst)
		}
	}
	return OrderGroupsByKeys(uids, groups), nil
}

func fill(n int, err error) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = err
	}
	return errs
}
