package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Toggle(t *testing.T) {
	tests := []struct {
		name string
		from Status
		want Status
	}{
		{name: "doing to done", from: StatusDoing, want: StatusDone},
		{name: "done to doing", from: StatusDone, want: StatusDoing},
		{name: "unknown to doing", from: Status("archived"), want: StatusDoing},
		{name: "empty to doing", from: Status(""), want: StatusDoing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.Toggle())
		})
	}
}

func TestStatus_ToggleTwiceIsIdentity(t *testing.T) {
	for _, s := range []Status{StatusDoing, StatusDone} {
		assert.Equal(t, s, s.Toggle().Toggle())
	}
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusDoing.Valid())
	assert.True(t, StatusDone.Valid())
	assert.False(t, Status("DONE").Valid())
	assert.False(t, Status("").Valid())
}
