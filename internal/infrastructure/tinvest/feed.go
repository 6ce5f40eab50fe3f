package tinvest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	investgo "github.com/russianinvestments/invest-api-go-sdk/investgo"
	pb "github.com/russianinvestments/invest-api-go-sdk/proto"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"bondtrader/internal/domain/entity/marketdata"
	"bondtrader/internal/domain/interfaces"
)

const defaultTickBuffer = 256

// ErrStreamEnded is reported when the SDK stream stops without an error.
var ErrStreamEnded = errors.New("market data stream ended")

// Feed opens order book subscriptions over the market data stream.
type Feed struct {
	client *investgo.Client
	buffer int
	logger *logrus.Entry
}

// NewFeed builds a Feed on top of a connected SDK client.
func NewFeed(client *investgo.Client, logger *logrus.Logger) *Feed {
	return &Feed{
		client: client,
		buffer: defaultTickBuffer,
		logger: logger.WithField("component", "tinvest_feed"),
	}
}

// Subscribe opens a stream of order books for figis. An empty list yields an
// idle subscription that only ends when closed.
func (f *Feed) Subscribe(ctx context.Context, figis []string, depth int32) (interfaces.Subscription, error) {
	sctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ticks:  make(chan marketdata.Tick, f.buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	g, gctx := errgroup.WithContext(sctx)
	if len(figis) == 0 {
		g.Go(func() error {
			<-gctx.Done()
			return gctx.Err()
		})
		go sub.finish(g)
		return sub, nil
	}

	stream, err := f.client.NewMarketDataStreamClient().MarketDataStream()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create market data stream: %w", err)
	}
	books, err := stream.SubscribeOrderBook(figis, depth)
	if err != nil {
		stream.Stop()
		cancel()
		return nil, fmt.Errorf("subscribe order books: %w", err)
	}

	g.Go(func() error {
		if err := stream.Listen(); err != nil {
			return fmt.Errorf("listen market data stream: %w", err)
		}
		return ErrStreamEnded
	})
	g.Go(func() error {
		<-gctx.Done()
		stream.Stop()
		return nil
	})
	g.Go(func() error {
		return f.pump(gctx, books, sub.ticks)
	})
	go sub.finish(g)

	return sub, nil
}

func (f *Feed) pump(ctx context.Context, books <-chan *pb.OrderBook, ticks chan<- marketdata.Tick) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-books:
			if !ok {
				// Listen reports why the stream ended
				return nil
			}
			tick := marketdata.Tick{ReceivedAt: time.Now().UTC()}
			if book, err := convertOrderBook(msg); err == nil {
				tick.OrderBook = book
			}
			select {
			case ticks <- tick:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

type subscription struct {
	ticks  chan marketdata.Tick
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func (s *subscription) Ticks() <-chan marketdata.Tick {
	return s.ticks
}

func (s *subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the stream and waits for its goroutines to exit.
func (s *subscription) Close() {
	s.cancel()
	<-s.done
}

func (s *subscription) finish(g *errgroup.Group) {
	err := g.Wait()
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.ticks)
	close(s.done)
}
