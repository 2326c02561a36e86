// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Command lba inspects and maintains the artifacts of the block-address
// subsystem: a device file holding the persisted mapping log and a sidecar
// file holding the encoded metablock. The sidecar convention exists for
// this tool only; the engine embeds metablocks in its own checkpoint.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/substratedb/lba"
	"github.com/substratedb/lba/device"
	"github.com/substratedb/lba/extent"
	"github.com/substratedb/lba/internal/base"
	"github.com/substratedb/lba/lbalog"
)

var extentSize int64

func main() {
	root := &cobra.Command{
		Use:   "lba",
		Short: "block-address mapping introspection and maintenance",
	}
	root.PersistentFlags().Int64Var(&extentSize, "extent-size", extent.DefaultSize,
		"extent size the device was created with")

	root.AddCommand(
		&cobra.Command{
			Use:   "info <metablock-file>",
			Short: "decode a metablock sidecar file",
			Args:  cobra.ExactArgs(1),
			RunE:  runInfo,
		},
		&cobra.Command{
			Use:   "dump <device-file> <metablock-file>",
			Short: "print the block mapping recovered from a device",
			Args:  cobra.ExactArgs(2),
			RunE:  runDump,
		},
		&cobra.Command{
			Use:   "compact <device-file> <metablock-file>",
			Short: "compact the mapping log and rewrite the metablock sidecar",
			Args:  cobra.ExactArgs(2),
			RunE:  runCompact,
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readMetablock(path string) (*lbalog.Metablock, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mb := &lbalog.Metablock{}
	if err := mb.DecodeFrom(buf); err != nil {
		return nil, err
	}
	return mb, nil
}

func writeMetablock(path string, mb *lbalog.Metablock) error {
	buf := make([]byte, lbalog.MetablockSize)
	mb.EncodeTo(buf)
	return os.WriteFile(path, buf, 0666)
}

// open loads the store from a device + metablock pair, waiting out an
// asynchronous startup.
func open(devPath, mbPath string) (*lba.LBA, error) {
	mb, err := readMetablock(mbPath)
	if err != nil {
		return nil, err
	}
	dev, err := device.Open(devPath)
	if err != nil {
		return nil, err
	}
	em := extent.NewManager(extentSize)
	l := lba.New(&lba.Options{})
	ready := make(chan struct{})
	if !l.Load(em, dev, mb, func() { close(ready) }) {
		<-ready
	}
	return l, nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	mb, err := readMetablock(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("entries: %d\n", mb.EntryCount)
	fmt.Printf("extents: %d\n", len(mb.Extents))
	for i, off := range mb.Extents {
		fmt.Printf("  %d: device offset %d\n", i, off)
	}
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	l, err := open(args[0], args[1])
	if err != nil {
		return err
	}
	defer l.Shutdown()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Block", "Offset"})
	hwm := l.HighWaterMark()
	for id := base.BlockID(0); id < hwm; id++ {
		offset, err := l.GetOffset(id)
		if err != nil {
			continue
		}
		table.Append([]string{id.String(), offset.String()})
	}
	table.Render()
	fmt.Printf("high-water mark: %s\n", hwm)
	return nil
}

func runCompact(cmd *cobra.Command, args []string) error {
	l, err := open(args[0], args[1])
	if err != nil {
		return err
	}
	before := l.Metrics().LogHistory

	l.GC()
	synced := make(chan struct{})
	if !l.Sync(func() { close(synced) }) {
		<-synced
	}
	mb := &lbalog.Metablock{}
	l.PrepareMetablock(mb)
	if err := writeMetablock(args[1], mb); err != nil {
		return err
	}
	after := l.Metrics().LogHistory
	l.Shutdown()
	fmt.Printf("compacted: %s -> %s entries\n",
		strconv.FormatInt(before, 10), strconv.FormatInt(after, 10))
	return nil
}
