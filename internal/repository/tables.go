package repository

// Table names of the external data service.
const (
	HealthRecordsTable = "health_records"
	UsersTable         = "users"
	RefreshTokensTable = "refresh_tokens"
)

// TableKeys maps every table to its primary key column. Store drivers that
// need to re-read written rows (MySQL) or enforce keys (Memory) use it.
var TableKeys = map[string]string{
	HealthRecordsTable: "record_id",
	UsersTable:         "id",
	RefreshTokensTable: "token_hash",
}

// UniqueColumns lists the secondary unique constraints per table.
var UniqueColumns = map[string][]string{
	UsersTable: {"email"},
}
