//go:build windows

package prompt

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// bifReturnOnlyFSDirs | bifEditBox
const browseFlags = 0x0001 | 0x0010

// sFalse is returned by CoInitialize when COM is already set up on the thread
const sFalse = 0x00000001

func selectFolder(p *Prompter, title string) (string, error) {
	// COM state belongs to the OS thread
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitialize(0); !comReady(err) {
		return "", fmt.Errorf("failed to initialize COM: %w", err)
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("Shell.Application")
	if err != nil {
		return "", fmt.Errorf("failed to create Shell object: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return "", fmt.Errorf("failed to get IDispatch interface: %w", err)
	}
	defer shell.Release()

	folderObj, err := oleutil.CallMethod(shell, "BrowseForFolder", 0, title, browseFlags)
	if err != nil {
		return "", fmt.Errorf("failed to show folder dialog: %w", err)
	}
	defer folderObj.Clear()

	if folderObj.Value() == nil {
		return "", ErrCancelled
	}

	folderItem := folderObj.ToIDispatch()
	if folderItem == nil {
		return "", ErrCancelled
	}

	selfProp, err := oleutil.GetProperty(folderItem, "Self")
	if err != nil {
		return "", fmt.Errorf("failed to get folder item: %w", err)
	}
	defer selfProp.Clear()

	pathProp, err := oleutil.GetProperty(selfProp.ToIDispatch(), "Path")
	if err != nil {
		return "", fmt.Errorf("failed to get folder path: %w", err)
	}
	defer pathProp.Clear()

	return pathProp.ToString(), nil
}

func comReady(err error) bool {
	if err == nil {
		return true
	}
	var oleErr *ole.OleError
	return errors.As(err, &oleErr) && oleErr.Code() == sFalse
}
