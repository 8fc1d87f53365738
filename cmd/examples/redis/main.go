package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/quantbed/tickbook/pkg/core"
	"github.com/quantbed/tickbook/pkg/messaging"
	"github.com/quantbed/tickbook/pkg/messaging/redis"
)

const (
	redisAddr = "localhost:6379"
	redisDB   = 0
	channel   = "tickbook.reports.example"
)

func main() {
	ctx := context.Background()

	client := goredis.NewClient(&goredis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	fmt.Printf("Redis connection established: %s\n", pong)

	// Subscribe before publishing so nothing is lost; pub/sub does not
	// buffer for late subscribers.
	subClient := goredis.NewClient(&goredis.Options{Addr: redisAddr, DB: redisDB})
	recv, closeSub := redis.Subscribe(ctx, subClient, channel)
	defer closeSub()

	book := core.NewBook(core.DefaultBookOptions())
	codec, err := messaging.NewCodec("0.01", "0.001")
	if err != nil {
		panic(err)
	}
	sender := redis.NewReportSenderOnChannel(client, channel)
	defer sender.Close()

	// Rest a sell, then cross it with a smaller buy; publish both
	// reports on the channel.
	for _, ticket := range []core.Ticket{
		core.LimitTicket(core.Sell, 1000, 10),
		core.LimitTicket(core.Buy, 1000, 5),
	} {
		rep, err := book.Accept(ticket)
		if err != nil {
			panic(err)
		}
		if err := sender.SendReport(ctx, codec.FromReport(rep)); err != nil {
			panic(err)
		}
		fmt.Printf("Published report: order=%d disposition=%s\n", rep.OrderID, rep.Disposition)
	}

	fmt.Println("\nReports received from Redis:")
	for i := 0; i < 2; i++ {
		msg, err := recv()
		if err != nil {
			panic(err)
		}
		fmt.Printf("- order=%d side=%s disposition=%s executed=%s remaining=%s fills=%d\n",
			msg.OrderID, msg.Side, msg.Disposition, msg.Executed, msg.Remaining, len(msg.Fills))
	}
}
