package bitring

import (
	"sync"
)

const (
	bitsPerWord = 64              // uint64 位数
	bitsMask    = bitsPerWord - 1 // 位操作掩码: 0x3f
	bitsShift   = 6               // 位计算偏移量: log2(64)

	defaultWindowSize     = 128
	defaultMinConsecutive = 3
)

// FailureRing 用比特环记录最近 windowSize 次发送是否失败的滑动窗口。
//
// 最近连续失败次数达到 minConsecutive，或窗口内失败率超过 rateThreshold 时视为降级。
type FailureRing struct {
	mu sync.RWMutex

	words []uint64

	windowSize int
	writePos   int
	isFull     bool

	failures       int
	minConsecutive int
	rateThreshold  float64
}

// Record 记录一次发送结果
func (fr *FailureRing) Record(failed bool) {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	// 窗口已满时被覆盖的位置原来是失败，先扣掉
	if fr.isFull && fr.bitAt(fr.writePos) {
		fr.failures--
	}
	fr.setBit(fr.writePos, failed)
	if failed {
		fr.failures++
	}

	fr.writePos++
	if fr.writePos >= fr.windowSize {
		fr.writePos = 0
		fr.isFull = true
	}
}

func (fr *FailureRing) bitAt(index int) bool {
	return (fr.words[index>>bitsShift]>>uint(index&bitsMask))&1 == 1
}

func (fr *FailureRing) setBit(index int, val bool) {
	pos := index >> bitsShift
	offset := uint(index & bitsMask)
	if val {
		fr.words[pos] |= 1 << offset
		return
	}
	fr.words[pos] &^= 1 << offset
}

// Degraded 是否处于降级状态
func (fr *FailureRing) Degraded() bool {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	size := fr.size()
	if size == 0 {
		return false
	}
	if size >= fr.minConsecutive && fr.tailFailed(fr.minConsecutive) {
		return true
	}
	return float64(fr.failures)/float64(size) > fr.rateThreshold
}

// tailFailed 最近 n 次是否都失败
func (fr *FailureRing) tailFailed(n int) bool {
	for i := 1; i <= n; i++ {
		if !fr.bitAt((fr.writePos - i + fr.windowSize) % fr.windowSize) {
			return false
		}
	}
	return true
}

// FailureRate 窗口内失败率，窗口为空时为 0
func (fr *FailureRing) FailureRate() float64 {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	size := fr.size()
	if size == 0 {
		return 0
	}
	return float64(fr.failures) / float64(size)
}

func (fr *FailureRing) size() int {
	if fr.isFull {
		return fr.windowSize
	}
	return fr.writePos
}

func NewFailureRing(windowSize int, minConsecutive int, rateThreshold float64) *FailureRing {
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	if minConsecutive <= 0 {
		minConsecutive = defaultMinConsecutive
	}
	minConsecutive = min(minConsecutive, windowSize)
	rateThreshold = min(rateThreshold, 1)

	return &FailureRing{
		words:          make([]uint64, (windowSize+bitsMask)/bitsPerWord),
		windowSize:     windowSize,
		minConsecutive: minConsecutive,
		rateThreshold:  rateThreshold,
	}
}
