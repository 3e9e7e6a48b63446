package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/JrMarcco/jreminder/internal/ioc"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	args := initViper()

	fx.New(
		fx.Supply(args),

		// 初始化 zap.Logger
		ioc.LoggerFxOpt,

		// 初始化数据库
		ioc.DBFxOpt,
		// 初始化 redis
		ioc.RedisFxOpt,
		// 初始化 etcd
		ioc.EtcdFxOpt,
		// 初始化 kafka
		ioc.KafkaFxOpt,

		// 初始化 Dao / Repo
		ioc.DaoFxOpt,
		ioc.RepoFxOpt,

		// 初始化供应商与渠道
		ioc.ServiceFxOpt,
		// 初始化生命周期事件记录
		ioc.LifecycleFxOpt,
		// 初始化重试策略
		ioc.PolicyFxOpt,
		// 初始化发送占用
		ioc.InflightFxOpt,
		// 初始化批量发送
		ioc.DispatchFxOpt,

		// 初始化 ioc.App
		ioc.AppFxOpt,

		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),

		// 确保日志缓冲区被刷新，OnStop 逆序执行，必须最先注册
		ioc.LoggerFxInvoke,
		ioc.DBFxInvoke,
		ioc.PolicyFxInvoke,
		// 实际运行方法，即调用 ioc.AppLifecycle 方法
		ioc.AppFxInvoke,
	).Run()
}

// initViper 初始化 viper，并解析批次参数
func initViper() ioc.BatchArgs {
	configFile := pflag.String("config", "etc/config.yaml", "配置文件路径")
	envFile := pflag.String("env", ".env", "环境变量文件路径，不存在时忽略")

	var args ioc.BatchArgs
	patients := pflag.UintSlice("patients", nil, "患者 id 列表，逗号分隔")
	pflag.StringVar(&args.TemplateName, "template", "", "模板名称")
	pflag.StringVar(&args.Category, "category", "appointment", "消息用途：appointment / medication / document / general")
	pflag.StringVar(&args.Subject, "subject", "", "邮件标题")
	pflag.StringVar(&args.Content, "content", "", "渲染好的消息内容")
	pflag.StringVar(&args.Channel, "channel", "sms", "渠道：sms / email / whatsapp")
	pflag.BoolVar(&args.DryRun, "dry-run", false, "只做授权判定，不发送")
	pflag.DurationVar(&args.Timeout, "timeout", 10*time.Minute, "批次超时时间")
	pflag.Parse()

	args.PatientIds = make([]uint64, 0, len(*patients))
	for _, id := range *patients {
		args.PatientIds = append(args.PatientIds, uint64(id))
	}

	// 密钥等敏感配置通过环境变量注入，配置文件中以 ${VAR} 引用
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	content, err := os.ReadFile(*configFile)
	if err != nil {
		panic(err)
	}

	viper.SetConfigType("yaml")
	if err = viper.ReadConfig(strings.NewReader(os.ExpandEnv(string(content)))); err != nil {
		panic(err)
	}
	return args
}
