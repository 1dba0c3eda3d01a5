package shmvec_test

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hupe1980/shmvec"
)

type visible struct {
	Object uint32
	LOD    uint32
}

// Example_producerConsumer shows a writer and a reader sharing one vector.
// The reader normally lives in another process and calls Attach.
func Example_producerConsumer() {
	dir, err := os.MkdirTemp("", "shmvec-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	owner, err := shmvec.NewRegistry(shmvec.WithDir(dir), shmvec.WithNamespace("cull"))
	if err != nil {
		log.Fatal(err)
	}
	defer owner.Close()

	id, err := shmvec.AllocOf[visible](owner, 1<<16, 1024, 0)
	if err != nil {
		log.Fatal(err)
	}

	peer, err := shmvec.Attach("cull", shmvec.WithDir(dir))
	if err != nil {
		log.Fatal(err)
	}
	defer peer.Close()

	reader, err := shmvec.Lookup[visible](peer, id)
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	writer, err := shmvec.Lookup[visible](owner, id)
	if err != nil {
		log.Fatal(err)
	}
	defer writer.Close()

	writer.StartWrite()
	for i := range 3 {
		_ = writer.PushBack(visible{Object: uint32(i), LOD: 1})
	}
	_ = writer.Update()
	_ = writer.EndWrite()

	_ = reader.Consume(time.Second, func(i int, v visible) error {
		fmt.Println(i, v.Object)
		return nil
	})
	// Output:
	// 0 0
	// 1 1
	// 2 2
}

// ExampleRegistry_Free shows that a vector with open views is not released.
func ExampleRegistry_Free() {
	dir, _ := os.MkdirTemp("", "shmvec-example")
	defer os.RemoveAll(dir)

	reg, _ := shmvec.NewRegistry(shmvec.WithDir(dir))
	defer reg.Close()

	id, _ := shmvec.AllocOf[uint64](reg, 100, 16, 0)
	v, _ := shmvec.Lookup[uint64](reg, id)

	freed, err := reg.Free(id)
	fmt.Println(freed, err != nil)

	_ = v.Close()
	freed, _ = reg.Free(id)
	fmt.Println(freed)
	// Output:
	// false true
	// true
}
