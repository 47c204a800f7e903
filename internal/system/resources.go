package system

import (
	"log"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Доля свободной памяти, которую могут занять кадры в работе.
const memoryShare = 4

// RenderWorkers определяет число воркеров рендеринга. requested > 0 имеет
// приоритет, иначе берется число логических CPU. Пул урезается так, чтобы
// по одному кадру на воркер помещалось в четверть доступной памяти.
func RenderWorkers(requested int, frameBytes int) int {
	workers := requested
	if workers <= 0 {
		n, err := cpu.Counts(true)
		if err != nil || n <= 0 {
			log.Printf("[!] Не удалось получить число CPU, рендеринг в один поток: %v", err)
			n = 1
		}
		workers = n
	}

	if vm, err := mem.VirtualMemory(); err == nil && frameBytes > 0 {
		workers = capByMemory(workers, vm.Available, frameBytes)
	}
	return workers
}

func capByMemory(workers int, available uint64, frameBytes int) int {
	budget := available / memoryShare
	maxFrames := int(budget / uint64(frameBytes))
	if maxFrames < 1 {
		maxFrames = 1
	}
	if workers > maxFrames {
		return maxFrames
	}
	return workers
}
