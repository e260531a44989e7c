package migrations

import "github.com/goliatone/go-timebank/data"

func init() {
	Register(data.Migrations())
}
