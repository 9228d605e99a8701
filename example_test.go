package stream_test

import (
	"context"
	"fmt"
	"strings"

	stream "github.com/dep2p/go-stream"
)

type Announcer interface {
	stream.Stream
	Announce(topic string, body string)
}

type Scorer interface {
	stream.Stream
	Score(word string) int
}

var (
	_ = stream.Declare[Announcer]()
	_ = stream.Declare[Scorer]()
)

type announcerProxy struct {
	*stream.Proxy[Announcer]
}

func (p announcerProxy) Announce(topic string, body string) {
	stream.Notify(p.Proxy, "Announce", func(a Announcer) {
		a.Announce(topic, body)
	}, topic, body)
}

type scorerProxy struct {
	*stream.Proxy[Scorer]
}

func (p scorerProxy) Score(word string) int {
	return stream.Call(p.Proxy, "Score", func(s Scorer) int {
		return s.Score(word)
	}, word)
}

type board struct {
	name   string
	room   string
	weight int
}

func (b *board) StreamTag(*stream.Capability) any {
	if b.room == "" {
		return nil
	}
	return b.room
}

func (b *board) Announce(topic string, body string) {
	fmt.Printf("%s got %s: %s\n", b.name, topic, body)
}

func (b *board) Score(word string) int {
	return len(word) * b.weight
}

func Example() {
	hub, err := stream.New(context.Background(), stream.WithMetrics(false))
	if err != nil {
		panic(err)
	}
	defer hub.Close()

	lobby := &board{name: "lobby", weight: 1}
	hall := &board{name: "hall", weight: 10}
	kitchen := &board{name: "kitchen", room: "kitchen", weight: 100}
	for _, b := range []*board{lobby, hall, kitchen} {
		if _, err := hub.Register(b); err != nil {
			panic(err)
		}
	}

	// 大厅优先
	hub.Connection(hall).SetPriority(1)

	announcer := announcerProxy{stream.MustProxy[Announcer](hub)}
	announcer.Announce("news", "doors open")

	kitchenOnly := announcerProxy{stream.MustProxy[Announcer](hub, stream.WithTag("kitchen"))}
	kitchenOnly.Announce("menu", "soup")

	total := scorerProxy{stream.MustProxy[Scorer](hub, stream.WithResultFilter(
		stream.FilterFunc(func(_ stream.Method, scores []int) int {
			sum := 0
			for _, s := range scores {
				sum += s
			}
			return sum
		}),
	))}
	fmt.Println("score:", total.Score(strings.Repeat("a", 3)))

	// Output:
	// hall got news: doors open
	// lobby got news: doors open
	// kitchen got menu: soup
	// score: 33
}

type lateJoiner struct {
	seen []string
}

func (*lateJoiner) StreamTag(*stream.Capability) any { return nil }

func (l *lateJoiner) Announce(topic string, body string) {
	l.seen = append(l.seen, topic+"="+body)
}

func ExampleHub_Replay() {
	hub, err := stream.New(context.Background(), stream.WithMetrics(false))
	if err != nil {
		panic(err)
	}
	defer hub.Close()

	sticky := announcerProxy{stream.MustProxy[Announcer](hub, stream.WithSticky())}
	sticky.Announce("status", "starting")
	sticky.Announce("status", "ready")

	late := &lateJoiner{}
	if _, err := hub.Register(late); err != nil {
		panic(err)
	}
	replayed, err := hub.Replay(late, stream.Lookup[Announcer]())
	if err != nil {
		panic(err)
	}

	fmt.Println(replayed, late.seen)
	// Output:
	// true [status=ready]
}
