package ioc

import (
	"gitee.com/flycash/courier-platform/internal/repository/dao"
	"github.com/ego-component/egorm"
)

func InitDB() *egorm.Component {
	db := egorm.Load("mysql").Build()
	if err := initTables(db); err != nil {
		panic(err)
	}
	return db
}

func initTables(db *egorm.Component) error {
	return db.AutoMigrate(
		&dao.Channel{},
		&dao.FlowDependency{},
		&dao.Msg{},
		&dao.Contact{},
		&dao.ContactURN{},
		&dao.SyncEvent{},
		&dao.Alert{},
		&dao.TopUp{},
	)
}
