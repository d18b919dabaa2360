package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "filegov/pkg/domain-errors"
)

type sample struct {
	Kind    string   `json:"kind" validate:"required,oneof=TRANSFER DELETE"`
	Reason  string   `json:"reason" validate:"notblank"`
	FileIDs []string `json:"file_ids" validate:"min=1,dive,uuid"`
}

type untagged struct {
	DenialComment string `validate:"max=3"`
	Ignored       string `json:"-" validate:"required"`
}

func TestValidate(t *testing.T) {
	valid := sample{Kind: "DELETE", Reason: "cleanup", FileIDs: []string{"0f8fad5b-d9cb-469f-a165-70867728950e"}}
	require.NoError(t, Validate(valid))

	cases := map[string]struct {
		in  sample
		msg string
	}{
		"missing kind":  {sample{Reason: "x", FileIDs: valid.FileIDs}, "kind is required"},
		"unknown kind":  {sample{Kind: "ARCHIVE", Reason: "x", FileIDs: valid.FileIDs}, "kind must be one of [TRANSFER DELETE]"},
		"blank reason":  {sample{Kind: "DELETE", Reason: "  ", FileIDs: valid.FileIDs}, "reason must not be blank"},
		"no files":      {sample{Kind: "DELETE", Reason: "x", FileIDs: []string{}}, "file_ids must be at least 1"},
		"bad file uuid": {sample{Kind: "DELETE", Reason: "x", FileIDs: []string{"nope"}}, "file_ids[0] must be a valid uuid"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate(tc.in)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestErrorMessageFieldNames(t *testing.T) {
	err := Validate(sample{Kind: "DELETE", Reason: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file_ids must be at least 1")

	err = Validate(untagged{DenialComment: "too long", Ignored: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DenialComment must be at most 3")

	err = Validate(untagged{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ignored is required")
}
