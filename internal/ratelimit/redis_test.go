package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptReply answers every script call with a fixed reply.
type scriptReply struct {
	val  interface{}
	err  error
	keys []string
	args []interface{}
}

func (s *scriptReply) reply(ctx context.Context, keys []string, args []interface{}) *redis.Cmd {
	s.keys = keys
	s.args = args
	cmd := redis.NewCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
		return cmd
	}
	cmd.SetVal(s.val)
	return cmd
}

func (s *scriptReply) Eval(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return s.reply(ctx, keys, args)
}

func (s *scriptReply) EvalSha(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return s.reply(ctx, keys, args)
}

func (s *scriptReply) EvalRO(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return s.reply(ctx, keys, args)
}

func (s *scriptReply) EvalShaRO(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return s.reply(ctx, keys, args)
}

func (s *scriptReply) ScriptExists(ctx context.Context, _ ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceCmd(ctx)
}

func (s *scriptReply) ScriptLoad(ctx context.Context, _ string) *redis.StringCmd {
	return redis.NewStringCmd(ctx)
}

func TestRedisLimiterAllowed(t *testing.T) {
	fake := &scriptReply{val: []interface{}{int64(1), "4.5"}}
	limiter := NewRedisLimiter(fake, testPolicy(2, 5))

	res, err := limiter.Allow(context.Background(), "user-7")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
	assert.Equal(t, 5, res.Limit)
	assert.Zero(t, res.RetryAfter)

	assert.Equal(t, []string{"spacebook:ratelimit:user-7"}, fake.keys)
	require.Len(t, fake.args, 3)
	assert.Equal(t, int64(5000), fake.args[2])
}

func TestRedisLimiterDenied(t *testing.T) {
	fake := &scriptReply{val: []interface{}{int64(0), "0.25"}}
	limiter := NewRedisLimiter(fake, testPolicy(0.25, 1))

	res, err := limiter.Allow(context.Background(), "user-7")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 3*time.Second, res.RetryAfter)
}

func TestRedisLimiterErrors(t *testing.T) {
	fake := &scriptReply{err: errors.New("connection refused")}
	limiter := NewRedisLimiter(fake, testPolicy(1, 1))
	_, err := limiter.Allow(context.Background(), "user-7")
	assert.Error(t, err)

	fake = &scriptReply{val: []interface{}{int64(1)}}
	limiter = NewRedisLimiter(fake, testPolicy(1, 1))
	_, err = limiter.Allow(context.Background(), "user-7")
	assert.Error(t, err)
}
