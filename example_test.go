package bamboo_test

import (
	"context"
	"fmt"
	"log"

	"github.com/TencentBlueKing/bamboo-engine-sub001"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/dsl"
	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/uid"
)

// ExampleEngine_Compile builds a parallel process and prints its tokens.
// Each parallel branch runs under its own token; the converge gateway
// brings execution back to the parent token.
func ExampleEngine_Compile() {
	// 1. Deterministic ids keep the output stable.
	eng, err := bamboo.New(bamboo.WithIDGenerator(uid.NewSequence()))
	if err != nil {
		log.Fatal(err)
	}

	// 2. Declare start -> pg -> {backup, notify} -> cg -> end
	start := dsl.NewEmptyStartEvent(dsl.WithID("start"))
	start.Extend(dsl.NewParallelGateway(dsl.WithID("pg"))).
		Connect(
			dsl.NewServiceActivity("bk_backup", dsl.WithID("backup")),
			dsl.NewServiceActivity("bk_notify", dsl.WithID("notify")),
		).
		Converge(dsl.NewConvergeGateway(dsl.WithID("cg"))).
		Extend(dsl.NewEmptyEndEvent(dsl.WithID("end")))

	// 3. Compile
	pipeline, err := eng.Compile(context.Background(), start)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(pipeline.ID())
	fmt.Println(pipeline.Tokens)
	// Output:
	// p1
	// map[backup:t2 cg:t1 end:t1 notify:t3 pg:t1 start:t1]
}

// ExampleEngine_SkippedNodes shows which nodes a late start position bypasses.
func ExampleEngine_SkippedNodes() {
	eng, err := bamboo.New()
	if err != nil {
		log.Fatal(err)
	}

	start := dsl.NewEmptyStartEvent(dsl.WithID("start"))
	start.Extend(dsl.NewServiceActivity("bk_prepare", dsl.WithID("prepare"))).
		Extend(dsl.NewServiceActivity("bk_deploy", dsl.WithID("deploy"))).
		Extend(dsl.NewEmptyEndEvent(dsl.WithID("end")))

	ctx := context.Background()
	pipeline, err := eng.Compile(ctx, start)
	if err != nil {
		log.Fatal(err)
	}

	allowed, _ := eng.AllowedStartNodes(ctx, pipeline.Tree)
	skipped, _ := eng.SkippedNodes(ctx, pipeline.Tree, "deploy")
	fmt.Println(allowed)
	fmt.Println(skipped)
	// Output:
	// [start prepare deploy]
	// [start prepare]
}
