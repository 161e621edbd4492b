package schema

// Builtin entity configuration for the parking service. Every manageable
// resource is described here once; endpoints, validation, storage layout
// and UI columns are all derived from these definitions.

// VehicleSchema describes a registered vehicle. Vehicles are owner-scoped:
// only the creating user (or an admin) may update or delete them.
func VehicleSchema() EntitySchema {
	return EntitySchema{
		Name:              "vehicle",
		PluralName:        "vehicles",
		DisplayName:       "Vehicle",
		DisplayNamePlural: "Vehicles",
		Icon:              IconCar,
		OwnerField:        "userId",
		Fields: []Field{
			{Name: "id", Type: TypeNumber, Primary: true},
			{Name: "plateNumber", Type: TypeText, DisplayName: "Plate Number", Required: true, Unique: true, Searchable: true},
			{Name: "vehicleType", Type: TypeSelect, DisplayName: "Type", Required: true,
				Options: []string{"Car", "Truck", "MotorCycle", "Bicycle"}},
			{Name: "size", Type: TypeSelect, DisplayName: "Size", Required: true,
				Options: []string{"Small", "Medium", "Large"}},
			{Name: "model", Type: TypeText, DisplayName: "Model", Required: true, Searchable: true},
			{Name: "color", Type: TypeText, DisplayName: "Color", Required: true, Searchable: true},
			{Name: "year", Type: TypeNumber, DisplayName: "Year", Required: true},
			{Name: "status", Type: TypeStatus, DisplayName: "Status", Default: "Available",
				Options: []string{"Available", "Parked", "Pending"},
				Colors:  map[string]string{"Available": "gray", "Parked": "green", "Pending": "amber"}},
			{Name: "userId", Type: TypeRelation, Hidden: true, RelationTo: "user", DisplayField: "name"},
		},
		Views: map[string]ViewConfig{
			"table": {Enabled: true, DefaultColumns: []string{"plateNumber", "vehicleType", "size", "color", "status"}},
			"grid":  {Enabled: true, DefaultColumns: []string{"plateNumber", "vehicleType", "model", "year", "status"}},
			"detail": {Enabled: true},
		},
	}
}

// RequestSchema describes a parking slot request placed for a vehicle.
func RequestSchema() EntitySchema {
	return EntitySchema{
		Name:              "request",
		PluralName:        "requests",
		DisplayName:       "Slot Request",
		DisplayNamePlural: "Slot Requests",
		Icon:              IconTicket,
		OwnerField:        "userId",
		Fields: []Field{
			{Name: "id", Type: TypeNumber, Primary: true},
			{Name: "vehicleId", Type: TypeRelation, DisplayName: "Vehicle", Required: true,
				RelationTo: "vehicle", DisplayField: "plateNumber"},
			{Name: "requestDate", Type: TypeDate, DisplayName: "Date", Required: true, Searchable: true},
			{Name: "requestTime", Type: TypeTime, DisplayName: "Time", Required: true},
			{Name: "duration", Type: TypeNumber, DisplayName: "Duration (hours)", Required: true, Default: 1},
			{Name: "status", Type: TypeStatus, DisplayName: "Status", Default: "Pending", Searchable: true,
				Options: []string{"Pending", "Approved", "Rejected"},
				Colors:  map[string]string{"Pending": "amber", "Approved": "green", "Rejected": "red"}},
			{Name: "slotNumber", Type: TypeText, DisplayName: "Slot Number", Searchable: true},
			{Name: "notes", Type: TypeTextarea, DisplayName: "Notes"},
			{Name: "userId", Type: TypeRelation, Hidden: true, RelationTo: "user", DisplayField: "name"},
		},
		Views: map[string]ViewConfig{
			"table":  {Enabled: true, DefaultColumns: []string{"id", "vehicleId", "requestDate", "status", "slotNumber"}},
			"detail": {Enabled: true},
		},
	}
}

// SlotSchema describes a parking slot. Slots are managed by admins only
// and are not owner-scoped.
func SlotSchema() EntitySchema {
	return EntitySchema{
		Name:              "slot",
		PluralName:        "slots",
		DisplayName:       "Parking Slot",
		DisplayNamePlural: "Parking Slots",
		Icon:              IconMapPin,
		AdminOnly:         true,
		Fields: []Field{
			{Name: "id", Type: TypeNumber, Primary: true},
			{Name: "slotNumber", Type: TypeText, DisplayName: "Slot Number", Required: true, Unique: true, Searchable: true},
			{Name: "size", Type: TypeSelect, DisplayName: "Size", Required: true,
				Options: []string{"Small", "Medium", "Large"}},
			{Name: "vehicleType", Type: TypeSelect, DisplayName: "Vehicle Type", Required: true,
				Options: []string{"Car", "Truck", "MotorCycle", "Bicycle"}},
			{Name: "location", Type: TypeText, DisplayName: "Location", Required: true, Searchable: true},
			{Name: "status", Type: TypeStatus, DisplayName: "Status", Default: "Available", Searchable: true,
				Options: []string{"Available", "Occupied"},
				Colors:  map[string]string{"Available": "green", "Occupied": "gray"}},
		},
		Views: map[string]ViewConfig{
			"table": {Enabled: true, DefaultColumns: []string{"slotNumber", "size", "vehicleType", "location", "status"}},
		},
	}
}

// UserSchema describes an account. The password field is hidden so it is
// never rendered in forms nor echoed by mutation responses.
func UserSchema() EntitySchema {
	return EntitySchema{
		Name:              "user",
		PluralName:        "users",
		DisplayName:       "User",
		DisplayNamePlural: "Users",
		Icon:              IconUser,
		AdminOnly:         true,
		Fields: []Field{
			{Name: "id", Type: TypeNumber, Primary: true},
			{Name: "name", Type: TypeText, DisplayName: "Name", Required: true, Searchable: true},
			{Name: "email", Type: TypeText, DisplayName: "Email", Required: true, Unique: true, Searchable: true},
			{Name: "password", Type: TypeText, Required: true, Hidden: true},
			{Name: "role", Type: TypeSelect, DisplayName: "Role", Default: "user",
				Options: []string{"user", "admin"}},
			{Name: "profileImage", Type: TypeText, DisplayName: "Profile Image"},
		},
		Views: map[string]ViewConfig{
			"table": {Enabled: true, DefaultColumns: []string{"name", "email", "role"}},
		},
	}
}

// DefaultRegistry builds and finalizes a registry holding all builtin
// entities. Any configuration error here is a programming mistake, hence
// the panic: it must surface at startup, never during request handling.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range []EntitySchema{UserSchema(), VehicleSchema(), RequestSchema(), SlotSchema()} {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	if err := r.Finalize(); err != nil {
		panic(err)
	}
	return r
}
