package domain

// Tables is the AutoMigrate order; devices must precede its dependents.
var Tables = []interface{}{
	&Device{},
	&Sample{},
}
