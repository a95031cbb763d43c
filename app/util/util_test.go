package util

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChunkString(t *testing.T) {
	type args struct {
		s         string
		chunkSize int
	}
	tests := []struct {
		name string
		args args
		want []string
	}{
		{
			name: "Empty",
			args: args{
				s:         "",
				chunkSize: 10,
			},
			want: []string{},
		},
		{
			name: "Single line",
			args: args{
				s:         "This is a single line",
				chunkSize: 10,
			},
			want: []string{
				"This is a",
				"single",
				"line",
			},
		},
		{
			name: "Multiple lines",
			args: args{
				s:         "This is a single line\nThis is a second line",
				chunkSize: 10,
			},
			want: []string{
				"This is a",
				"single",
				"line\n",
				"This is a",
				"second",
				"line",
			},
		},
		{
			name: "Long line",
			args: args{
				s:         "This is a long line that will be split by words",
				chunkSize: 10,
			},
			want: []string{
				"This is a",
				"long line",
				"that will",
				"be split",
				"by words",
			},
		},
		{
			name: "Long line with newlines",
			args: args{
				s:         "This is a long line that will be split by words\nThis is a second line that will be split by words",
				chunkSize: 10,
			},
			want: []string{
				"This is a",
				"long line",
				"that will",
				"be split",
				"by words\n",
				"This is a",
				"second",
				"line that",
				"will be",
				"split by",
				"words",
			},
		},
		{
			name: "Long line with newlines and no split",
			args: args{
				s:         "This is a long line that will not be split by words\nThis is a second line that will not be split by words",
				chunkSize: 256,
			},
			want: []string{
				"This is a long line that will not be split by words\nThis is a second line that will not be split by words",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChunkString(tt.args.s, tt.args.chunkSize); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("\nRESULT:\n%s\nEXPECTED:\n%s", strings.Join(got, "\n"), strings.Join(tt.want, "\n"))
			}
		})
	}
}

func TestEnv(t *testing.T) {
	t.Setenv("RESUMOTUBE_TEST_VALUE", "set")
	assert.Equal(t, "set", Env("RESUMOTUBE_TEST_VALUE", "default"))
	assert.Equal(t, "default", Env("RESUMOTUBE_TEST_MISSING", "default"))
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("RESUMOTUBE_TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, EnvDuration("RESUMOTUBE_TEST_DURATION", time.Minute))

	t.Setenv("RESUMOTUBE_TEST_DURATION", "soon")
	assert.Equal(t, time.Minute, EnvDuration("RESUMOTUBE_TEST_DURATION", time.Minute))
	assert.Equal(t, time.Hour, EnvDuration("RESUMOTUBE_TEST_UNSET", time.Hour))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "missing", Mask("", 8))
	assert.Equal(t, "t=123...", Mask("t=1234567,v1=abc", 5))
	assert.Equal(t, "abc...", Mask("abc", 8))
}

func TestNameFromEmail(t *testing.T) {
	assert.Equal(t, "maria", NameFromEmail("maria@example.com"))
	assert.Equal(t, "no-at-sign", NameFromEmail("no-at-sign"))
}

func TestStartOfDayAndMonth(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	now := time.Date(2024, 5, 17, 15, 4, 5, 6, loc)
	assert.Equal(t, time.Date(2024, 5, 17, 0, 0, 0, 0, loc), StartOfDay(now))
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, loc), StartOfMonth(now))
}

func TestRetry(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), 5*time.Second, func() (bool, error) {
		attempts++
		if attempts < 3 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryPermanentError(t *testing.T) {
	attempts := 0
	permanent := errors.New("bad request")
	err := Retry(context.Background(), 5*time.Second, func() (bool, error) {
		attempts++
		return false, permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, RetryableStatus(http.StatusTooManyRequests))
	assert.True(t, RetryableStatus(http.StatusBadGateway))
	assert.False(t, RetryableStatus(http.StatusBadRequest))
	assert.False(t, RetryableStatus(http.StatusOK))
}
