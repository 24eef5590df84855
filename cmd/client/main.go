package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/person-directory/internal/config"
	"gitlab.com/dirk.krummacker/person-directory/internal/gateway"
	"gitlab.com/dirk.krummacker/person-directory/internal/randomgen"
	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

// Measures the average latency of every gateway operation against a running back end, in
// microseconds, for growing numbers of records.
//
// Usage example on the command line:
// > go run main.go -sizes=100,1000
func main() {
	var sizes sizeList = []int{100, 500, 1000, 5000}
	flag.Var(&sizes, "sizes", "comma separated numbers of records per round")
	seedPtr := flag.Uint64("seed", uint64(time.Now().UnixNano()), "seed of the record generator")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	reg := prometheus.NewRegistry()
	gw := gateway.New(gateway.Config{
		RESTBase:        cfg.Gateway.RESTBase,
		GraphQLEndpoint: cfg.Gateway.GraphQLEndpoint,
		Timeout:         cfg.Gateway.Timeout,
	}, zap.NewNop(), gateway.NewMetrics(reg))
	gen := randomgen.New(*seedPtr)
	ctx := context.Background()

	fmt.Println()
	fmt.Println("  Elements    CREATE    UPDATE    SEARCH    DELETE ")
	fmt.Println("---------------------------------------------------")
	for _, loops := range sizes {
		fmt.Printf("%10d", loops)
		persons := uniquePersons(gen, loops)
		ids := make([]int64, 0, loops)
		{
			// create requests
			var duration time.Duration
			for _, p := range persons {
				before := time.Now()
				created, err := gw.Create(ctx, p)
				duration += time.Since(before)
				exitOnError("create", err)
				ids = append(ids, created.Id)
			}
			printAverage(duration, loops)
		}
		{
			// update requests
			callInLoop(ids, func(i int, id int64) error {
				p := persons[i]
				p.FirstName = gen.PickFirstName()
				_, err := gw.Update(ctx, id, p)
				return err
			})
		}
		{
			// search requests
			callInLoop(ids, func(i int, _ int64) error {
				_, err := gw.Search(ctx, model.SearchCriteria{Phone: model.StringValue(persons[i].Phone)})
				return err
			})
		}
		{
			// delete requests
			callInLoop(ids, func(_ int, id int64) error {
				return gw.DeleteByID(ctx, id)
			})
		}
		fmt.Println()
	}

	counts, err := gateway.Summarize(reg)
	exitOnError("metrics", err)
	fmt.Println()
	printCalls(os.Stdout, counts)
}

// callInLoop calls f once per id, in random order, and prints the average duration.
func callInLoop(ids []int64, f func(i int, id int64) error) {
	order := rand.Perm(len(ids))
	var duration time.Duration
	for _, i := range order {
		before := time.Now()
		err := f(i, ids[i])
		duration += time.Since(before)
		exitOnError("request", err)
	}
	printAverage(duration, len(ids))
}

// uniquePersons returns n random records whose phone numbers differ from each other.
func uniquePersons(gen *randomgen.Generator, n int) []model.Person {
	seen := make(map[string]bool, n)
	persons := make([]model.Person, 0, n)
	for len(persons) < n {
		p := gen.Person()
		if seen[*p.Phone] {
			continue
		}
		seen[*p.Phone] = true
		persons = append(persons, p)
	}
	return persons
}

func printAverage(total time.Duration, loops int) {
	if loops == 0 {
		fmt.Printf("%10s", "-")
		return
	}
	fmt.Printf("%10d", total.Microseconds()/int64(loops))
}

func exitOnError(op string, err error) {
	if err == nil {
		return
	}
	fmt.Println()
	fmt.Println("error making", op, err)
	os.Exit(1)
}
