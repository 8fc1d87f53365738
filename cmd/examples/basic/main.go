package main

import (
	"fmt"

	"github.com/quantbed/tickbook/pkg/core"
)

func main() {
	book := core.NewBook(core.DefaultBookOptions())

	// Rest a sell limit order
	sellRep, err := book.Accept(core.LimitTicket(core.Sell, 1000, 10))
	if err != nil {
		panic(err)
	}
	fmt.Printf("Created sell order: %d (%s)\n", sellRep.OrderID, sellRep.Disposition)

	// Cross it with a smaller buy
	buyRep, err := book.Accept(core.LimitTicket(core.Buy, 1000, 5))
	if err != nil {
		panic(err)
	}

	fmt.Printf("Processing buy order: %d\n", buyRep.OrderID)
	for _, fill := range buyRep.Fills {
		fmt.Printf("Trade executed: maker=%d taker=%d price=%d quantity=%d\n",
			fill.MakerID, fill.TakerID, fill.Price, fill.Quantity)
	}
	fmt.Printf("Buy order executed quantity: %d\n", buyRep.Executed)

	// Summary
	fmt.Println("\nSummary of the book:")
	if ask, ok := book.BestAsk(); ok {
		fmt.Printf("- Best ask: price=%d size=%d\n", ask.Price, ask.Size)
	}
	if bid, ok := book.BestBid(); ok {
		fmt.Printf("- Best bid: price=%d size=%d\n", bid.Price, bid.Size)
	} else {
		fmt.Println("- No resting bids")
	}
}
