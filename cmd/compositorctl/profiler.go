package main

import (
	"log"
	"runtime"
	"time"
)

// frameProfiler reports this driver's execution throughput: how many
// graph nodes and shader passes `Execute` is getting through per second,
// alongside the heap/GC picture, once per updateInterval. Unlike a
// generic engine tick counter, what it accumulates is specific to a
// graph execution: node count and shader-pass count come from walking
// the loaded graph's execution order and each instance's definition, not
// from a frame-rate-only heartbeat.
type frameProfiler struct {
	frameCount     int
	nodesExecuted  int
	shaderPasses   int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// newFrameProfiler creates a frameProfiler that logs once per second.
func newFrameProfiler() *frameProfiler {
	return &frameProfiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// tick records one executed frame's node and shader-pass counts, logging
// a throughput summary once updateInterval has elapsed. Returns true when
// it logged.
func (p *frameProfiler) tick(nodesExecuted, shaderPasses int) bool {
	p.frameCount++
	p.nodesExecuted += nodesExecuted
	p.shaderPasses += shaderPasses

	now := time.Now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()
	nodesPerSec := float64(p.nodesExecuted) / elapsed.Seconds()
	passesPerSec := float64(p.shaderPasses) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	log.Printf("[profiler] %.2f frames/sec | %.1f nodes/sec | %.1f shader passes/sec | heap %.2f MB | alloc rate %.2f MB/s | GC %d (last %d us, max %d us) | sys %.2f MB",
		fps, nodesPerSec, passesPerSec, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.frameCount = 0
	p.nodesExecuted = 0
	p.shaderPasses = 0
	p.lastTime = now
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
