package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/config"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/notifier"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/repository"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	/**********************************************
	 * 创建 repository 和 dispatcher
	 **********************************************/
	repo := repository.NewRepository(cfg, dbpool)
	dispatcher := notifier.NewDispatcher(repo, notifier.NewRedisPusher(rdb), time.Duration(cfg.Redis.OperationExpiration)*time.Second)

	/**********************************************
	 * 周期性扫描到期的闹钟
	 **********************************************/
	ticker := time.NewTicker(time.Duration(cfg.Alarm.SweepInterval) * time.Second)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	logger.Info("alarm worker 已启动", "interval", cfg.Alarm.SweepInterval)

	for {
		select {
		case <-quit:
			logger.Info("alarm worker 已成功关闭")
			return
		case now := <-ticker.C:
			sweep(repo, dispatcher, now)
		}
	}
}

// sweep 处理所有到期的闹钟。
// 先标记再发通知，标记失败说明已被其他实例处理，直接跳过
func sweep(repo *repository.Repository, dispatcher *notifier.Dispatcher, now time.Time) {
	alarms, err := repo.GetDueAlarms(now)
	if err != nil {
		slog.Error("无法获取到期的闹钟", "error", err)
		return
	}

	for _, alarm := range alarms {
		if err := repo.MarkAlarmTriggered(alarm.ID); err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				slog.Error("无法标记闹钟已触发", "alarmID", alarm.ID, "error", err)
			}
			continue
		}

		slotCtx, err := repo.GetSlotContext(alarm.TimeSlotID)
		if err != nil {
			slog.Error("无法获取时段信息", "timeSlotID", alarm.TimeSlotID, "error", err)
			continue
		}

		if err := dispatcher.AlarmTriggered(alarm.UserID, slotCtx); err != nil {
			slog.Error("无法发送闹钟通知", "alarmID", alarm.ID, "error", err)
		}
	}

	if len(alarms) > 0 {
		slog.Info("闹钟扫描完成", "count", len(alarms))
	}
}
