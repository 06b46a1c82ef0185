// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pointer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mycollection/pkg/pointer"
)

/*
TestFallback keeps an explicit zero value and replaces only an omitted one.
*/
func TestFallback(t *testing.T) {
	assert.Equal(t, "kept", pointer.Fallback[string](nil, "kept"))
	assert.Equal(t, "", pointer.Fallback(pointer.To(""), "kept"))
	assert.False(t, pointer.Fallback(pointer.To(false), true))
}
