package ioc

import (
	"github.com/JrMarcco/jreminder/internal/repository/dao"
	"go.uber.org/fx"
)

var DaoFxOpt = fx.Provide(
	// patient dao
	fx.Annotate(
		dao.NewDefaultPatientDAO,
		fx.As(new(dao.PatientDAO)),
	),
	// notification dao
	fx.Annotate(
		dao.NewDefaultNotificationDAO,
		fx.As(new(dao.NotificationDAO)),
	),
	// escalation dao
	fx.Annotate(
		dao.NewDefaultEscalationDAO,
		fx.As(new(dao.EscalationDAO)),
	),
	// lifecycle event sharding dao，建表时需要具体类型
	fx.Annotate(
		dao.NewLifecycleEventShardingDAO,
		fx.As(fx.Self(), new(dao.LifecycleEventDAO)),
	),
)
