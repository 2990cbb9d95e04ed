/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	perf "github.com/hodgesds/perf-utils"
)

// measure runs f, counting its CPU instructions when counting is enabled.
// Hosts without perf events access still run f.
func measure(enabled bool, f func() error) (err error) {
	if !enabled {
		return f()
	}
	var (
		pv    *perf.ProfileValue
		fnErr error
		ran   bool
	)
	pv, err = perf.CPUInstructions(func() error {
		ran = true
		fnErr = f()
		return fnErr
	})
	if !ran {
		fmt.Printf("perf counters unavailable: %s\n", err)
		return f()
	}
	if fnErr != nil || err != nil {
		return fnErr
	}
	fmt.Printf("CPU instructions: %d\n", pv.Value)
	return nil
}
