package sqlstore_test

import (
	"database/sql"
	"testing"

	"github.com/corverroos/truss"
	_ "github.com/go-sql-driver/mysql"
)

var migrations = []string{
	`
	create table notifier_records (
		id                 varchar(255) not null,
		record_type        varchar(255) not null,
		status             int not null,
		object             longblob not null,
		created_at         datetime(3) not null,
		updated_at         datetime(3) not null,

		primary key(id),

		index by_record_type_status (record_type, status)
	)`,
}

func ConnectForTesting(t *testing.T) *sql.DB {
	return truss.ConnectForTesting(t, migrations...)
}
