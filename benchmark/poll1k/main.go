package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/battery-rental-service/pkg/auth"
	rentalGrpc "liyu1981.xyz/battery-rental-service/pkg/grpc"
)

// Rents every available battery to its own user, then has all of them poll their
// current usage over HTTP or gRPC at random, and finally returns the batteries.
// Run against a server started from a freshly seeded catalog.

var maxUsers int = 1000
var pollsPerUser int = 10
var httpHostPort string = "127.0.0.1:1080"
var grpcHostPort string = "127.0.0.1:10801"

var grpcClient *rentalGrpc.UsageServiceClient

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

var throttled atomic.Int64
var failed atomic.Int64

type user struct {
	id      string
	token   string
	orderID uint
}

func main() {
	secret := os.Getenv("RENTAL_JWT_SECRET")
	if secret == "" {
		log.Fatal("RENTAL_JWT_SECRET must match the server's")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}
	fmt.Printf("http server verified\n")

	conn, err := grpc.NewClient(grpcHostPort, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer conn.Close()
	grpcClient = rentalGrpc.NewUsageServiceClient(conn)
	fmt.Printf("gRPC client created\n")

	batteryIDs := availableBatteries()
	if len(batteryIDs) > maxUsers {
		batteryIDs = batteryIDs[:maxUsers]
	}
	if len(batteryIDs) == 0 {
		log.Fatal("no available batteries, seed the catalog first")
	}

	users := make([]*user, len(batteryIDs))
	for i := range users {
		id := uuid.NewString()
		token, err := auth.IssueToken(secret, id, time.Hour, time.Now())
		if err != nil {
			log.Fatal(err)
		}
		users[i] = &user{id: id, token: token}
	}
	fmt.Printf("generated %v users\n", len(users))

	timed("rented", len(users), func() {
		forEach(users, func(i int, u *user) { rent(u, batteryIDs[i]) })
	})

	timed("polled", len(users)*pollsPerUser, func() {
		forEach(users, func(_ int, u *user) {
			for range pollsPerUser {
				poll(u)
				time.Sleep(time.Duration(100+randInt(400)) * time.Millisecond)
			}
		})
	})

	timed("completed", len(users), func() {
		forEach(users, func(_ int, u *user) { complete(u) })
	})

	fmt.Printf("throttled=%v failed=%v\n", throttled.Load(), failed.Load())
}

func timed(what string, actions int, fn func()) {
	startTime := time.Now()
	fn()
	usedTime := time.Since(startTime)
	fmt.Printf(
		"\r%s for %v actions: used time=%v seconds, throughput=%v action/second\n",
		what, actions, usedTime.Seconds(), float64(actions)/usedTime.Seconds(),
	)
}

func forEach(users []*user, fn func(int, *user)) {
	wg := sync.WaitGroup{}
	for i, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(i, u)
		}()
	}
	wg.Wait()
}

func randInt(n int32) int32 {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Int31n(n)
}

func flipCoin() bool {
	return randInt(100000)%2 == 0
}

func availableBatteries() []uint {
	var ids []uint
	for page := 1; ; page++ {
		var body struct {
			Items []struct {
				ID uint `json:"ID"`
			} `json:"items"`
		}
		if err := doJSON(http.MethodGet, fmt.Sprintf("/batteries?status=available&page=%d", page), "", nil, &body); err != nil {
			log.Fatal("Failed to list batteries:", err)
		}
		if len(body.Items) == 0 {
			return ids
		}
		for _, b := range body.Items {
			ids = append(ids, b.ID)
		}
	}
}

func doJSON(method, path, token string, payload any, out any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, fmt.Sprintf("http://%s%s", httpHostPort, path), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		throttled.Add(1)
		return nil
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func withToken(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), auth.AuthorizationHeader, "Bearer "+token)
}

func rent(u *user, batteryID uint) {
	var order struct {
		ID uint `json:"ID"`
	}
	if err := doJSON(http.MethodPost, fmt.Sprintf("/batteries/%d/orders", batteryID), u.token,
		map[string]any{"rental_days": 1}, &order); err != nil {
		fmt.Printf("\nerror: %v\n", err)
		failed.Add(1)
		return
	}
	u.orderID = order.ID

	if err := doJSON(http.MethodPost, fmt.Sprintf("/orders/%d/confirm", u.orderID), u.token, nil, nil); err != nil {
		fmt.Printf("\nerror: %v\n", err)
		failed.Add(1)
		return
	}

	if flipCoin() {
		if err := doJSON(http.MethodPost, fmt.Sprintf("/orders/%d/activate", u.orderID), u.token, nil, nil); err != nil {
			fmt.Printf("\nerror: %v\n", err)
			failed.Add(1)
		}
		return
	}
	req, _ := structpb.NewStruct(map[string]any{"order_id": float64(u.orderID)})
	if _, err := grpcClient.ActivateOrder(withToken(u.token), req); err != nil {
		fmt.Printf("\nerror: %v\n", err)
		failed.Add(1)
	}
}

func poll(u *user) {
	if flipCoin() {
		if err := doJSON(http.MethodGet, "/usage/current", u.token, nil, nil); err != nil {
			fmt.Printf("\nerror: %v\n", err)
			failed.Add(1)
		}
		return
	}
	_, err := grpcClient.CurrentUsage(withToken(u.token), &structpb.Struct{})
	if status.Code(err) == codes.ResourceExhausted {
		throttled.Add(1)
		return
	}
	if err != nil {
		fmt.Printf("\nerror: %v\n", err)
		failed.Add(1)
	}
}

func complete(u *user) {
	if u.orderID == 0 {
		return
	}
	req, _ := structpb.NewStruct(map[string]any{"order_id": float64(u.orderID)})
	if _, err := grpcClient.CompleteOrder(withToken(u.token), req); err != nil {
		fmt.Printf("\nerror: %v\n", err)
		failed.Add(1)
	}
}
