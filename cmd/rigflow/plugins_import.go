package main

import (
	"github.com/rigflow/rigflow/internal/catalog"
	"github.com/rigflow/rigflow/plugins/loadcell"
	"github.com/rigflow/rigflow/plugins/logic"
	mockservo "github.com/rigflow/rigflow/plugins/mock_servo"
	powersupply "github.com/rigflow/rigflow/plugins/power_supply"
)

// RegisterPlugins installs the compiled-in device builders. Discovery
// still decides which plugins are visible: a builder without a matching
// plugin directory stays dormant.
func RegisterPlugins(cat *catalog.Catalog) {
	cat.RegisterBuilder(mockservo.DeviceClass, mockservo.Builder())
	cat.RegisterBuilder(loadcell.DeviceClass, loadcell.Builder())
	cat.RegisterBuilder(powersupply.DeviceClass, powersupply.Builder())
	cat.RegisterBuilder(logic.DeviceClass, logic.Builder())
}
