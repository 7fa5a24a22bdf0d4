package osfs

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"

	"github.com/gowalk/pwalk/fsapi"
)

// statToInfo converts a raw Stat_t into fsapi.Info, pulling Dev/Ino
// straight off the struct the way the teacher's read_device_unix.go
// reads Stat_t.Dev for its device-boundary check, and stat_unix.go
// reads the Stat_t timestamps for ModTime.
func statToInfo(st *unix.Stat_t) fsapi.Info {
	return fsapi.Info{
		Type:    typeFromMode(st.Mode),
		Mode:    modeFromStat(st.Mode),
		Size:    st.Size,
		ModTime: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
		Dev:     uint64(st.Dev),
		Ino:     st.Ino,
		Nlink:   uint64(st.Nlink),
	}
}

func typeFromMode(mode uint32) fsapi.FileType {
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return fsapi.Dir
	case unix.S_IFREG:
		return fsapi.Reg
	case unix.S_IFLNK:
		return fsapi.Lnk
	case unix.S_IFBLK:
		return fsapi.Blk
	case unix.S_IFCHR:
		return fsapi.Chr
	case unix.S_IFIFO:
		return fsapi.Fifo
	case unix.S_IFSOCK:
		return fsapi.Sock
	default:
		return fsapi.Unknown
	}
}

func modeFromStat(mode uint32) fs.FileMode {
	perm := fs.FileMode(mode & 0777)
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return perm | fs.ModeDir
	case unix.S_IFLNK:
		return perm | fs.ModeSymlink
	case unix.S_IFBLK:
		return perm | fs.ModeDevice
	case unix.S_IFCHR:
		return perm | fs.ModeCharDevice | fs.ModeDevice
	case unix.S_IFIFO:
		return perm | fs.ModeNamedPipe
	case unix.S_IFSOCK:
		return perm | fs.ModeSocket
	default:
		return perm
	}
}
