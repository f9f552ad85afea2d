package value

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kvadminer/kvadminer/internal/kverr"
)

// ErrType is wrapped by every error Write returns for an unwritable target.
var ErrType = errors.New("type mismatch")

// Read looks up the type of key and returns its canonical value.
//
// A missing key yields an Entry of type None and no error. An unrecognised
// type yields type Unknown with an empty value and no error. A failed TYPE
// or fetch is returned as a store error alongside an Entry of type Unknown.
func Read(ctx context.Context, rdb redis.Cmdable, key string) (Entry, error) {
	entry := Entry{Key: key}

	name, err := rdb.Type(ctx, key).Result()
	if err != nil {
		return Entry{Key: key, Type: Unknown}, kverr.Store("value: read type", fmt.Errorf("key %q: %w", key, err))
	}
	entry.Type = fromRedis(name)

	switch entry.Type {
	case Scalar:
		entry.Value, err = rdb.Get(ctx, key).Result()
	case List:
		var elems []string
		elems, err = rdb.LRange(ctx, key, 0, -1).Result()
		entry.Value = Join(elems)
	case Set:
		var elems []string
		elems, err = rdb.SMembers(ctx, key).Result()
		entry.Value = Join(elems)
	case OrderedSet:
		var elems []string
		elems, err = rdb.ZRange(ctx, key, 0, -1).Result()
		entry.Value = Join(elems)
	case FieldMap:
		var fields map[string]string
		fields, err = rdb.HGetAll(ctx, key).Result()
		entry.Value = JoinPairs(fields)
	case None, Unknown:
		return entry, nil
	}

	if errors.Is(err, redis.Nil) {
		// Deleted between TYPE and the fetch.
		return Entry{Key: key, Type: None}, nil
	}
	if err != nil {
		return Entry{Key: key, Type: entry.Type}, kverr.Store("value: read "+entry.Type.String(),
			fmt.Errorf("key %q: %w", key, err))
	}
	return entry, nil
}

// Write stores canonical under key as the target type. The target is always
// declared by the caller, since an edit may change the entry's type.
//
// Scalar targets are written with SET. Collection targets replace the key in
// one MULTI/EXEC block: the key is deleted and then reloaded from the
// comma-split elements. A collection value with no elements leaves the key
// deleted. None and Unknown targets fail with a type error.
func Write(ctx context.Context, rdb redis.Cmdable, key, canonical string, target Type) error {
	if !target.Writable() {
		return kverr.E(kverr.KindType, "value: write",
			fmt.Errorf("%w: cannot write key %q as %s", ErrType, key, target))
	}

	if target == Scalar {
		if err := rdb.Set(ctx, key, canonical, 0).Err(); err != nil {
			return kverr.Store("value: write string", fmt.Errorf("key %q: %w", key, err))
		}
		return nil
	}

	elems := Split(canonical)
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(elems) == 0 {
			return nil
		}

		switch target {
		case List:
			pipe.RPush(ctx, key, toArgs(elems)...)
		case Set:
			pipe.SAdd(ctx, key, toArgs(elems)...)
		case OrderedSet:
			members := make([]redis.Z, len(elems))
			for i, e := range elems {
				members[i] = redis.Z{Score: float64(i), Member: e}
			}
			pipe.ZAdd(ctx, key, members...)
		case FieldMap:
			args := make([]interface{}, 0, len(elems)*2)
			for _, e := range elems {
				field, val := SplitPair(e)
				args = append(args, field, val)
			}
			pipe.HSet(ctx, key, args...)
		}
		return nil
	})
	if err != nil {
		return kverr.Store("value: write "+target.String(), fmt.Errorf("key %q: %w", key, err))
	}
	return nil
}

// Delete removes key and reports whether it existed.
func Delete(ctx context.Context, rdb redis.Cmdable, key string) (bool, error) {
	n, err := rdb.Del(ctx, key).Result()
	if err != nil {
		return false, kverr.Store("value: delete", fmt.Errorf("key %q: %w", key, err))
	}
	return n > 0, nil
}

func toArgs(elems []string) []interface{} {
	args := make([]interface{}, len(elems))
	for i, e := range elems {
		args[i] = e
	}
	return args
}
