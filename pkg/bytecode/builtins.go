package bytecode

// Syscall IDs are the SYSCALL operands the VM dispatches on.
// The numbering is a fixed contract with the VM.
const (
	SysExit  int32 = 0
	SysPrint int32 = 1
	SysInput int32 = 2
	SysGetf  int32 = 3
	SysType  int32 = 4
	SysScan  int32 = 5
	SysRead  int32 = 6
	SysWrite int32 = 7
)

// Objcall IDs are the OBJCALL operands for built-ins that take a receiver.
const (
	ObjAppend   int32 = 0
	ObjSize     int32 = 1
	ObjRemoveAt int32 = 2
	ObjPop      int32 = 3
	ObjIsEmpty  int32 = 4
	ObjSlice    int32 = 5
	ObjMap      int32 = 6
	ObjFilter   int32 = 7
	ObjMin      int32 = 8
	ObjMax      int32 = 9
	ObjLower    int32 = 10
	ObjUpper    int32 = 11
	ObjToString int32 = 12
)

// Syscalls maps plain built-in names to syscall IDs.
var Syscalls = map[string]int32{
	"exit":  SysExit,
	"print": SysPrint,
	"input": SysInput,
	"getf":  SysGetf,
	"type":  SysType,
	"scan":  SysScan,
	"read":  SysRead,
	"write": SysWrite,
}

// ObjCalls maps receiver-taking built-in names to objcall IDs.
var ObjCalls = map[string]int32{
	"append":    ObjAppend,
	"size":      ObjSize,
	"remove_at": ObjRemoveAt,
	"pop":       ObjPop,
	"is_empty":  ObjIsEmpty,
	"slice":     ObjSlice,
	"map":       ObjMap,
	"filter":    ObjFilter,
	"min":       ObjMin,
	"max":       ObjMax,
	"lower":     ObjLower,
	"upper":     ObjUpper,
	"toString":  ObjToString,
}

// SyscallName returns the built-in name for a syscall ID, or "" if unknown.
func SyscallName(id int32) string {
	return reverseLookup(Syscalls, id)
}

// ObjCallName returns the built-in name for an objcall ID, or "" if unknown.
func ObjCallName(id int32) string {
	return reverseLookup(ObjCalls, id)
}

func reverseLookup(m map[string]int32, id int32) string {
	for name, v := range m {
		if v == id {
			return name
		}
	}
	return ""
}
