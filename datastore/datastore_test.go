/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore_test

import (
	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/datastore/ddb"
	"github.com/suparena/recordstore/datastore/mock"
	"github.com/suparena/recordstore/datastore/redis"
	"github.com/suparena/recordstore/datastore/sqlite"
)

var (
	_ datastore.DataStore = (*ddb.DataStore)(nil)
	_ datastore.DataStore = (*redis.DataStore)(nil)
	_ datastore.DataStore = (*sqlite.DataStore)(nil)
	_ datastore.DataStore = (*mock.DataStore)(nil)
)
