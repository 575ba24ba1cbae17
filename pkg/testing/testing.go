package testing

import (
	"os"
	"path"
	"runtime"
)

func init() {
	// cd to the project root so logs/ and relative fixtures (testdata/) resolve the same
	// way for every package under test
	//
	//   in some_test.go,
	//   import (
	//     _ "liyu1981.xyz/battery-rental-service/pkg/testing"
	//   )

	_, filename, _, _ := runtime.Caller(0)
	dir := path.Join(path.Dir(filename), "..", "..")
	if err := os.Chdir(dir); err != nil {
		panic(err)
	}
}
