package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegisterStringVar_DefaultAndOverride(t *testing.T) {
	sv := RegisterStringVar("TEST_CFG_STRING", "mydefault", "test desc", ComponentTesting)
	assert.Equal(t, "mydefault", sv.Get())

	t.Setenv("TEST_CFG_STRING", "override")
	assert.Equal(t, "override", sv.Get())
}

func TestRegisterBoolVar_DefaultAndOverride(t *testing.T) {
	bv := RegisterBoolVar("TEST_CFG_BOOL", false, "test desc", ComponentTesting)
	assert.False(t, bv.Get())

	t.Setenv("TEST_CFG_BOOL", "true")
	assert.True(t, bv.Get())

	t.Setenv("TEST_CFG_BOOL", "notabool")
	assert.False(t, bv.Get(), "invalid value should fall back to default")
}

func TestRegisterIntVar_DefaultAndOverride(t *testing.T) {
	iv := RegisterIntVar("TEST_CFG_INT", 7, "test desc", ComponentTesting)
	assert.Equal(t, 7, iv.Get())

	t.Setenv("TEST_CFG_INT", "42")
	assert.Equal(t, 42, iv.Get())

	t.Setenv("TEST_CFG_INT", "not-an-int")
	assert.Equal(t, 7, iv.Get())
}

func TestRegisterFloatVar_DefaultAndOverride(t *testing.T) {
	fv := RegisterFloatVar("TEST_CFG_FLOAT", 0.5, "test desc", ComponentTesting)
	assert.Equal(t, 0.5, fv.Get())

	t.Setenv("TEST_CFG_FLOAT", "1.25")
	assert.Equal(t, 1.25, fv.Get())
}

func TestRegisterDurationVar_DefaultAndOverride(t *testing.T) {
	dv := RegisterDurationVar("TEST_CFG_DURATION", 30*time.Second, "test desc", ComponentTesting)
	assert.Equal(t, 30*time.Second, dv.Get())

	t.Setenv("TEST_CFG_DURATION", "5ms")
	assert.Equal(t, 5*time.Millisecond, dv.Get())
}

func TestVarDescriptions_IncludesRegisteredMetadata(t *testing.T) {
	RegisterStringVar("TEST_CFG_DESCRIBED", "d", "described variable", ComponentTesting)

	found := false
	for _, v := range VarDescriptions() {
		if v.Name == "TEST_CFG_DESCRIBED" {
			found = true
			assert.Equal(t, "described variable", v.Description)
			assert.Equal(t, TypeString, v.Type)
			assert.Equal(t, ComponentTesting, v.Component)
		}
	}
	assert.True(t, found)
}

func TestExportJSON_FiltersByComponent(t *testing.T) {
	RegisterStringVar("TEST_CFG_JSON_DB", "x", "db var", ComponentDatabase)

	out := ExportJSON("database")
	assert.Contains(t, out, "TEST_CFG_JSON_DB")
	assert.NotContains(t, out, "TEST_CFG_STRING")
}
