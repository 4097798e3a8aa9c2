// Package cpu exposes the small set of AArch64 primitives that cannot be
// expressed in portable Go: system register access, barriers, TLB
// maintenance and the WFI idle instruction. Each function below is declared
// without a body; its implementation lives in the matching _arm64.s file,
// following the same Go/assembly split the teacher kernel uses for
// cpu.Halt, cpu.FlushTLBEntry and cpu.SwitchPDT.
package cpu

// EnableInterrupts clears PSTATE.I, unmasking IRQs on the current core.
func EnableInterrupts()

// DisableInterrupts sets PSTATE.I, masking IRQs on the current core.
func DisableInterrupts()

// Halt executes a single WFI, parking the core until the next interrupt.
// Unlike the teacher's x86 Halt (HLT in a loop) this does return after each
// interrupt, since AArch64 WFI is a single instruction; callers that want an
// unconditional park call Halt in their own infinite loop.
func Halt()

// CurrentEL returns the current exception level (1 or 2) encoded in
// CurrentEL[3:2].
func CurrentEL() uint64

// ReadESR reads ESR_EL1, the exception syndrome register for the most
// recently taken synchronous exception at EL1.
func ReadESR() uint64

// ReadFAR reads FAR_EL1, the fault address register.
func ReadFAR() uint64

// ReadMPIDR reads MPIDR_EL1, used to derive the executing core's affinity
// (core id within the cluster).
func ReadMPIDR() uint64

// ReadASIDBits reads ID_AA64MMFR0_EL1 and returns true if the implementation
// supports 16-bit ASIDs (field value 2), false for the 8-bit default.
func ReadASIDBits() bool

// DSB issues a full-system Data Synchronization Barrier (DSB SY).
func DSB()

// DSBISH issues an inner-shareable Data Synchronization Barrier (DSB ISH),
// the variant required after TLB/cache maintenance broadcast to other
// observers in the inner shareable domain.
func DSBISH()

// ISB issues an Instruction Synchronization Barrier.
func ISB()

// CleanDCacheVA cleans a single data cache line containing addr to the
// Point of Unification (DC CVAU).
func CleanDCacheVA(addr uintptr)

// InvalidateDCacheVA invalidates a single data cache line containing addr
// (DC IVAC). Used only on cache-coherency-sensitive init paths.
func InvalidateDCacheVA(addr uintptr)

// TLBIVAE1IS invalidates a single TLB entry for virtAddr, broadcast to the
// inner shareable domain (TLBI VAE1IS), scoped to the current ASID.
func TLBIVAE1IS(virtAddr uintptr)

// TLBIASIDE1IS invalidates every TLB entry tagged with asid, broadcast to
// the inner shareable domain (TLBI ASIDE1IS).
func TLBIASIDE1IS(asid uint16)

// TLBIVMALLE1IS invalidates all TLB entries for the current VMID at EL1,
// broadcast to the inner shareable domain (TLBI VMALLE1IS). Used by the ASID
// allocator on generation rollover.
func TLBIVMALLE1IS()

// WriteTTBR0 programs TTBR0_EL1 with the physical address of a user address
// space's root table, tagged with asid in the TTBR's ASID field.
func WriteTTBR0(rootPhysAddr uintptr, asid uint16)

// ReadTTBR0 returns the physical address currently programmed in TTBR0_EL1
// (ASID field masked off).
func ReadTTBR0() uintptr

// WriteTTBR1 programs TTBR1_EL1 with the physical address of the kernel
// root table. Called once during MMU bring-up; stable across context
// switches thereafter.
func WriteTTBR1(rootPhysAddr uintptr)

// WriteMAIR programs MAIR_EL1 with the memory attribute index table.
func WriteMAIR(value uint64)

// WriteTCR programs TCR_EL1 with the translation control configuration.
func WriteTCR(value uint64)

// EnableMMU sets SCTLR_EL1.M (and I+C+WXN, per the mandated enable
// sequence), turning on the MMU and caches. Must only be called after
// MAIR_EL1, TCR_EL1, TTBR0_EL1 and TTBR1_EL1 have been programmed and a
// DSB+ISB pair has executed.
func EnableMMU()

// EnableFPSIMD sets CPACR_EL1.FPEN to 0b11, granting EL0 and EL1 access to
// the FP/SIMD register file without trapping. Left unset at boot so the
// first FP/SIMD instruction anywhere in the kernel takes the lazy-enable
// trap (ESR_EL1.EC 0b000111) instead of every context switch eagerly saving
// V0-V31 whether or not a process ever touches them.
func EnableFPSIMD()
