// Command client is a minimal CLI for the binary order-entry protocol:
// it places or cancels one order and prints every Report the server
// sends back until the connection closes.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"

	"fenrir/internal/instrument"
	orderpkg "fenrir/internal/order"
	"fenrir/internal/transport"

	"github.com/google/uuid"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:7330", "address of the order-entry server")
	action := flag.String("action", "place", "action to perform: 'place' or 'cancel'")

	pairStr := flag.String("pair", "BTC-USD", "trading pair, e.g. BTC-USD")
	sideStr := flag.String("side", "buy", "order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "order type: 'limit' or 'market'")
	price := flag.Uint64("price", 0, "limit price (required for -type limit)")
	qty := flag.Uint64("qty", 10, "order quantity")

	orderID := flag.String("id", "", "order id to cancel (required for -action cancel)")

	flag.Parse()

	pair, err := instrument.ParsePair(*pairStr)
	if err != nil {
		log.Fatalf("invalid pair %q: %v", *pairStr, err)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *serverAddr)

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		side := orderpkg.Buy
		if strings.ToLower(*sideStr) == "sell" {
			side = orderpkg.Sell
		}
		kind := orderpkg.Limit
		hasPrice := true
		if strings.ToLower(*typeStr) == "market" {
			kind = orderpkg.Market
			hasPrice = false
		}

		msg := transport.NewOrderMessage{
			Side:     side,
			Kind:     kind,
			HasPrice: hasPrice,
			Price:    *price,
			Quantity: *qty,
			Pair:     pair,
		}
		if _, err := conn.Write(transport.EncodeNewOrder(msg)); err != nil {
			log.Fatalf("failed sending order: %v", err)
		}
		fmt.Printf("-> sent %s %s %s qty=%d price=%d\n", strings.ToUpper(*sideStr), strings.ToUpper(*typeStr), pair, *qty, *price)

	case "cancel":
		if *orderID == "" {
			log.Fatal("-id is required for -action cancel")
		}
		id, err := uuid.Parse(*orderID)
		if err != nil {
			log.Fatalf("invalid -id: %v", err)
		}
		msg := transport.CancelOrderMessage{OrderID: id, Pair: pair}
		if _, err := conn.Write(transport.EncodeCancelOrder(msg)); err != nil {
			log.Fatalf("failed sending cancel: %v", err)
		}
		fmt.Printf("-> sent cancel for %s on %s\n", id, pair)

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("listening for reports... (ctrl-c to exit)")
	select {}
}

func readReports(conn net.Conn) {
	for {
		rep, err := transport.ReadReport(conn)
		if err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}

		if rep.Kind == transport.ErrorReport {
			fmt.Printf("\n[ERROR] order=%s %s\n", rep.OrderID, rep.Err)
			continue
		}

		fmt.Printf("\n[ACCEPTED] order=%s trades=%d\n", rep.OrderID, len(rep.Trades))
		for _, t := range rep.Trades {
			fmt.Printf("  trade: %s price=%d qty=%d maker=%s taker=%s\n",
				t.Symbol, t.Price, t.Quantity, t.MakerID, t.TakerID)
		}
	}
}
